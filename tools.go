package main

import (
	"encoding/base64"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/genai"

	"gemini-media-mcp/internal/media"
)

func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "gemini_image_generation",
		Description: "Generate high-quality images using Google's Gemini image generation models. Supports text-to-image generation with style control and multi-language prompts. Generated images are saved to storage and referenced by object key.",
	}, s.handleImageGeneration)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "gemini_image_edit",
		Description: "Edit an existing image using Google's Gemini AI models. The input image can be a local file path, a public URL, or an object key from a previous generation/upload result. Supports targeted modifications, style transfers, and object addition/removal.",
	}, s.handleImageEdit)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "gemini_multi_image",
		Description: "Combine and blend multiple images (2-3) using Google's Gemini AI models. Each input can be a local file path or an object key from a previous result. All inputs are resolved concurrently; if any one fails the whole request fails.",
	}, s.handleMultiImage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "veo_text_to_video",
		Description: "Generate 8-second videos from text prompts using Google's Veo models. Create videos with detailed scene descriptions, camera movements, and realistic physics. Supports 16:9/9:16 aspect ratios, 720p/1080p resolution, and negative prompts.",
	}, s.handleTextToVideo)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "veo_image_to_video",
		Description: "Animate a static image into an 8-second video using Google's Veo models. The input image becomes the starting frame of the generated video. The image can be a local file path or an object key from a previous result.",
	}, s.handleImageToVideo)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "gemini_media_understanding",
		Description: "Analyze an image, video, audio file, PDF, or text document with a Gemini model. The file can be a local path, a public URL (YouTube URLs are passed straight to the model), or a previously uploaded file URI from gemini_upload_file. Files small enough are sent inline; oversized files must be staged with gemini_upload_file first.",
	}, s.handleMediaUnderstanding)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "gemini_web_search",
		Description: "Answer a question using Gemini with Google Search grounding. Returns the grounded answer together with the web sources it drew on.",
	}, s.handleWebSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "gemini_list_files",
		Description: "List files previously uploaded to the Gemini Files API, with their state, size, and URI. Supports pagination.",
	}, s.handleListFiles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "gemini_delete_file",
		Description: "Delete a file from the Gemini Files API by its name (e.g. 'files/abc123').",
	}, s.handleDeleteFile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "gemini_upload_file",
		Description: "Upload a large local file to the Gemini Files API in the background. The tool returns immediately; the upload and remote processing continue on the server and the terminal outcome (success, failure, or timeout) is delivered via the configured notification channels. Use the resulting file URI with gemini_media_understanding.",
	}, s.handleUploadFile)
}

// partFromPlan converts a resolved transfer plan into a generation request
// content part.
func partFromPlan(plan media.Plan) (*genai.Part, error) {
	switch p := plan.(type) {
	case media.Inline:
		data, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode inline payload: %w", err)
		}
		return &genai.Part{InlineData: &genai.Blob{MIMEType: p.MIMEType, Data: data}}, nil
	case media.DirectReference:
		return &genai.Part{FileData: &genai.FileData{FileURI: p.URI, MIMEType: p.MIMEType}}, nil
	case media.RemoteUpload:
		return &genai.Part{FileData: &genai.FileData{FileURI: p.RemoteURI, MIMEType: p.MIMEType}}, nil
	default:
		return nil, fmt.Errorf("unhandled transfer plan %T", plan)
	}
}
