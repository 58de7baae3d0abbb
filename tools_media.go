package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/genai"
)

type MediaUnderstandingInput struct {
	Prompt   string `json:"prompt" jsonschema:"description:Question or instruction about the media, e.g. 'Summarize this document' or 'What happens in this video?'"`
	FilePath string `json:"file_path,omitempty" jsonschema:"description:Local file path or storage object key of the media to analyze. Mutually exclusive with file_url and file_uri."`
	FileURL  string `json:"file_url,omitempty" jsonschema:"description:Public URL of the media to analyze. YouTube watch URLs are passed to the model directly. Mutually exclusive with file_path and file_uri."`
	FileURI  string `json:"file_uri,omitempty" jsonschema:"description:Gemini Files API URI of a previously uploaded file (e.g. from gemini_upload_file). Requires mime_type. Mutually exclusive with the other input fields."`
	MIMEType string `json:"mime_type,omitempty" jsonschema:"description:MIME type of the file referenced by file_uri."`
	Model    string `json:"model,omitempty" jsonschema:"description:Gemini model to use for analysis."`
}

type MediaUnderstandingOutput struct {
	Answer      string `json:"answer"`
	Source      string `json:"source"`
	Model       string `json:"model"`
	GeneratedAt string `json:"generated_at"`
}

type WebSearchInput struct {
	Query string `json:"query" jsonschema:"description:The question or topic to search the web for"`
	Model string `json:"model,omitempty" jsonschema:"description:Gemini model to use for grounded search."`
}

type WebSearchOutput struct {
	Answer      string   `json:"answer"`
	Sources     []string `json:"sources,omitempty"`
	Model       string   `json:"model"`
	GeneratedAt string   `json:"generated_at"`
}

func (s *Server) handleMediaUnderstanding(ctx context.Context, req *mcp.CallToolRequest, input MediaUnderstandingInput) (*mcp.CallToolResult, MediaUnderstandingOutput, error) {
	if input.Prompt == "" {
		return errorResult("prompt is required"), MediaUnderstandingOutput{}, nil
	}

	model := input.Model
	if model == "" {
		model = s.config.UnderstandingModel
	}

	src, cleanup, err := s.sourceFromFields(ctx, input.FilePath, input.FileURL, input.FileURI, input.MIMEType)
	if err != nil {
		return errorResult("failed to resolve media input: %v", err), MediaUnderstandingOutput{}, nil
	}
	if cleanup != nil {
		defer cleanup()
	}

	plan, err := s.coordinator.Resolve(ctx, src)
	if err != nil {
		return errorResult("failed to resolve media input: %v", err), MediaUnderstandingOutput{}, nil
	}
	mediaPart, err := partFromPlan(plan)
	if err != nil {
		return errorResult("failed to prepare media input: %v", err), MediaUnderstandingOutput{}, nil
	}

	log.Printf("Analyzing media %s with model %s: %s", src.Describe(), model, input.Prompt)

	parts := []*genai.Part{
		genai.NewPartFromText(input.Prompt),
		mediaPart,
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	response, err := s.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return errorResult("error analyzing media: %v", err), MediaUnderstandingOutput{}, nil
	}

	answer := responseText(response)
	if answer == "" {
		return errorResult("model returned no text for the media"), MediaUnderstandingOutput{}, nil
	}

	return textResult(answer), MediaUnderstandingOutput{
		Answer:      answer,
		Source:      src.Describe(),
		Model:       model,
		GeneratedAt: time.Now().Format("20060102_150405"),
	}, nil
}

func (s *Server) handleWebSearch(ctx context.Context, req *mcp.CallToolRequest, input WebSearchInput) (*mcp.CallToolResult, WebSearchOutput, error) {
	if input.Query == "" {
		return errorResult("query is required"), WebSearchOutput{}, nil
	}

	model := input.Model
	if model == "" {
		model = s.config.SearchModel
	}

	log.Printf("Web search with model %s: %s", model, input.Query)

	contents := []*genai.Content{
		genai.NewContentFromText(input.Query, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	response, err := s.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return errorResult("error performing web search: %v", err), WebSearchOutput{}, nil
	}

	answer := responseText(response)
	if answer == "" {
		return errorResult("search returned no answer"), WebSearchOutput{}, nil
	}

	sources := groundingSources(response)

	var text strings.Builder
	text.WriteString(answer)
	if len(sources) > 0 {
		text.WriteString("\n\nSources:\n")
		for i, source := range sources {
			fmt.Fprintf(&text, "%d. %s\n", i+1, source)
		}
	}

	return textResult(text.String()), WebSearchOutput{
		Answer:      answer,
		Sources:     sources,
		Model:       model,
		GeneratedAt: time.Now().Format("20060102_150405"),
	}, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 {
		return ""
	}
	candidate := response.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(text.String())
}

// groundingSources extracts the web sources the grounded answer cites.
func groundingSources(response *genai.GenerateContentResponse) []string {
	if response == nil || len(response.Candidates) == 0 {
		return nil
	}
	metadata := response.Candidates[0].GroundingMetadata
	if metadata == nil {
		return nil
	}
	var sources []string
	for _, chunk := range metadata.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		if chunk.Web.Title != "" {
			sources = append(sources, fmt.Sprintf("%s (%s)", chunk.Web.Title, chunk.Web.URI))
		} else {
			sources = append(sources, chunk.Web.URI)
		}
	}
	return sources
}
