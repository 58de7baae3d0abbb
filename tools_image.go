package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/genai"

	"gemini-media-mcp/internal/media"
	"gemini-media-mcp/internal/storage"
)

type ImageGenerationInput struct {
	Prompt      string   `json:"prompt" jsonschema:"description:Detailed text prompt describing what you want to visualize. Be specific about style, composition, colors, mood, and any particular elements you want included in the image."`
	Model       string   `json:"model,omitempty" jsonschema:"description:Image generation model to use. Gemini native image models (gemini-*) and Imagen models are supported."`
	Style       string   `json:"style,omitempty" jsonschema:"description:Image style preference such as 'photorealistic', 'artistic', 'cartoon', 'sketch', 'oil painting', 'watercolor', etc."`
	AspectRatio string   `json:"aspect_ratio,omitempty" jsonschema:"description:Preferred aspect ratio for the image. Supported ratios: '1:1' (square), '3:4', '4:3', '9:16' (portrait), '16:9' (landscape)"`
	Tags        []string `json:"tags,omitempty" jsonschema:"description:Optional tags to help categorize or describe the generated image"`
}

type ImageGenerationOutput struct {
	Description   string   `json:"description"`
	Model         string   `json:"model"`
	Style         string   `json:"style,omitempty"`
	AspectRatio   string   `json:"aspect_ratio,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	SavedFiles    []string `json:"saved_files,omitempty"`
	DownloadURLs  []string `json:"download_urls,omitempty"`
	ExpiresAt     string   `json:"expires_at,omitempty"`
	GeneratedAt   string   `json:"generated_at"`
	ImagesCreated int      `json:"images_created"`
}

type ImageEditInput struct {
	InputImagePath string `json:"input_image_path,omitempty" jsonschema:"description:Local file path or storage object key of the image to edit. Mutually exclusive with input_image_url and input_file_uri."`
	InputImageURL  string `json:"input_image_url,omitempty" jsonschema:"description:Public URL of the image to edit. Mutually exclusive with input_image_path and input_file_uri."`
	InputFileURI   string `json:"input_file_uri,omitempty" jsonschema:"description:Gemini Files API URI of a previously uploaded image. Requires input_mime_type. Mutually exclusive with the other input fields."`
	InputMIMEType  string `json:"input_mime_type,omitempty" jsonschema:"description:MIME type of the file referenced by input_file_uri."`
	EditPrompt     string `json:"edit_prompt" jsonschema:"description:Detailed description of how to edit the image. Be specific about what changes to make."`
	Model          string `json:"model,omitempty" jsonschema:"description:Gemini model to use for image editing."`
	PreserveStyle  bool   `json:"preserve_style,omitempty" jsonschema:"description:Whether to preserve the original image style during editing,default:true"`
	EditType       string `json:"edit_type,omitempty" jsonschema:"description:Type of edit: 'modify' (change elements), 'add' (add new elements), 'remove' (remove elements), 'style' (change style),default:modify"`
}

type ImageEditOutput struct {
	OriginalImage string   `json:"original_image"`
	EditedImage   string   `json:"edited_image,omitempty"`
	EditType      string   `json:"edit_type"`
	Model         string   `json:"model"`
	SavedFiles    []string `json:"saved_files,omitempty"`
	DownloadURLs  []string `json:"download_urls,omitempty"`
	ExpiresAt     string   `json:"expires_at,omitempty"`
	GeneratedAt   string   `json:"generated_at"`
}

type MultiImageInput struct {
	InputImagePaths []string `json:"input_image_paths" jsonschema:"description:Local paths or storage object keys of the images to combine (2-3 images)."`
	CombinePrompt   string   `json:"combine_prompt" jsonschema:"description:Description of how to combine or blend the images"`
	Model           string   `json:"model,omitempty" jsonschema:"description:Gemini model to use for multi-image processing."`
	BlendMode       string   `json:"blend_mode,omitempty" jsonschema:"description:How to blend images: 'merge', 'collage', 'overlay', 'sequence',default:merge"`
}

type MultiImageOutput struct {
	InputImages     []string `json:"input_images"`
	CombinedImage   string   `json:"combined_image,omitempty"`
	BlendMode       string   `json:"blend_mode"`
	Model           string   `json:"model"`
	SavedFiles      []string `json:"saved_files,omitempty"`
	DownloadURLs    []string `json:"download_urls,omitempty"`
	ExpiresAt       string   `json:"expires_at,omitempty"`
	GeneratedAt     string   `json:"generated_at"`
	ImagesProcessed int      `json:"images_processed"`
}

func (s *Server) handleImageGeneration(ctx context.Context, req *mcp.CallToolRequest, input ImageGenerationInput) (*mcp.CallToolResult, ImageGenerationOutput, error) {
	if input.Prompt == "" {
		return errorResult("prompt is required"), ImageGenerationOutput{}, nil
	}

	model := input.Model
	if model == "" {
		model = s.config.ImageModel
	}
	style := input.Style
	if style == "" {
		style = "photorealistic"
	}

	log.Printf("Generating image with model %s for prompt: %s (style: %s)", model, input.Prompt, style)

	var promptParts []string
	promptParts = append(promptParts, input.Prompt)
	if style != "photorealistic" {
		promptParts = append(promptParts, fmt.Sprintf("in %s style", style))
	}
	if input.AspectRatio != "" {
		promptParts = append(promptParts, fmt.Sprintf("aspect ratio %s", input.AspectRatio))
	}
	promptText := strings.Join(promptParts, ", ")

	var stored *storedImages
	if strings.HasPrefix(model, "gemini-") {
		contents := []*genai.Content{
			genai.NewContentFromText(promptText, genai.RoleUser),
		}
		config := &genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		}

		response, err := s.client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return errorResult("error generating image: %v", err), ImageGenerationOutput{}, nil
		}
		if response == nil || len(response.Candidates) == 0 {
			return errorResult("no image was generated"), ImageGenerationOutput{}, nil
		}
		stored = s.storeImageParts(ctx, response, "gemini_image")
	} else {
		// Imagen models go through the dedicated API.
		config := &genai.GenerateImagesConfig{NumberOfImages: 1}
		if input.AspectRatio != "" {
			config.AspectRatio = input.AspectRatio
		}

		response, err := s.client.Models.GenerateImages(ctx, model, promptText, config)
		if err != nil {
			return errorResult("error generating images: %v", err), ImageGenerationOutput{}, nil
		}
		if response == nil || len(response.GeneratedImages) == 0 {
			return errorResult("no images were generated"), ImageGenerationOutput{}, nil
		}
		stored = &storedImages{remote: s.storage.IsRemote()}
		for _, genImage := range response.GeneratedImages {
			if genImage.Image == nil || len(genImage.Image.ImageBytes) == 0 {
				continue
			}
			stored.add(ctx, s.storage, genImage.Image.ImageBytes, "image/png", "imagen_image")
		}
	}

	if stored.count == 0 {
		return errorResult("no images were generated in response"), ImageGenerationOutput{}, nil
	}

	timestamp := time.Now().Format("20060102_150405")
	return stored.result(), ImageGenerationOutput{
		Description:   fmt.Sprintf("Successfully generated %d image(s) using %s", stored.count, model),
		Model:         model,
		Style:         style,
		AspectRatio:   input.AspectRatio,
		Tags:          input.Tags,
		SavedFiles:    stored.savedFiles,
		DownloadURLs:  stored.downloadURLs,
		ExpiresAt:     stored.expiresAt,
		GeneratedAt:   timestamp,
		ImagesCreated: stored.count,
	}, nil
}

func (s *Server) handleImageEdit(ctx context.Context, req *mcp.CallToolRequest, input ImageEditInput) (*mcp.CallToolResult, ImageEditOutput, error) {
	if input.EditPrompt == "" {
		return errorResult("edit_prompt is required"), ImageEditOutput{}, nil
	}

	model := input.Model
	if model == "" {
		model = s.config.ImageModel
	}
	editType := input.EditType
	if editType == "" {
		editType = "modify"
	}

	src, cleanup, err := s.sourceFromFields(ctx, input.InputImagePath, input.InputImageURL, input.InputFileURI, input.InputMIMEType)
	if err != nil {
		return errorResult("failed to resolve input image: %v", err), ImageEditOutput{}, nil
	}
	if cleanup != nil {
		defer cleanup()
	}

	plan, err := s.coordinator.Resolve(ctx, src)
	if err != nil {
		return errorResult("failed to resolve input image: %v", err), ImageEditOutput{}, nil
	}
	imagePart, err := partFromPlan(plan)
	if err != nil {
		return errorResult("failed to prepare input image: %v", err), ImageEditOutput{}, nil
	}

	log.Printf("Editing image %s with model %s: %s", src.Describe(), model, input.EditPrompt)

	var promptParts []string
	promptParts = append(promptParts, input.EditPrompt)
	if input.PreserveStyle {
		promptParts = append(promptParts, "Preserve the original image style and characteristics")
	}
	switch editType {
	case "add":
		promptParts = append(promptParts, "Add the requested elements to the image")
	case "remove":
		promptParts = append(promptParts, "Remove the specified elements from the image")
	case "style":
		promptParts = append(promptParts, "Change the style while keeping the subject matter")
	default:
		promptParts = append(promptParts, "Modify the image as requested")
	}

	parts := []*genai.Part{
		genai.NewPartFromText(strings.Join(promptParts, ". ")),
		imagePart,
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	response, err := s.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return errorResult("error editing image: %v", err), ImageEditOutput{}, nil
	}
	if response == nil || len(response.Candidates) == 0 {
		return errorResult("no edited content was generated"), ImageEditOutput{}, nil
	}

	stored := s.storeImageParts(ctx, response, "gemini_edit")
	if stored.count == 0 {
		return errorResult("no edited image was returned"), ImageEditOutput{}, nil
	}

	return stored.result(), ImageEditOutput{
		OriginalImage: src.Describe(),
		EditedImage:   stored.lastLocation,
		EditType:      editType,
		Model:         model,
		SavedFiles:    stored.savedFiles,
		DownloadURLs:  stored.downloadURLs,
		ExpiresAt:     stored.expiresAt,
		GeneratedAt:   time.Now().Format("20060102_150405"),
	}, nil
}

func (s *Server) handleMultiImage(ctx context.Context, req *mcp.CallToolRequest, input MultiImageInput) (*mcp.CallToolResult, MultiImageOutput, error) {
	if len(input.InputImagePaths) < 2 {
		return errorResult("at least 2 input images are required"), MultiImageOutput{}, nil
	}
	if len(input.InputImagePaths) > 3 {
		return errorResult("maximum 3 input images supported"), MultiImageOutput{}, nil
	}
	if input.CombinePrompt == "" {
		return errorResult("combine_prompt is required"), MultiImageOutput{}, nil
	}

	model := input.Model
	if model == "" {
		model = s.config.ImageModel
	}
	blendMode := input.BlendMode
	if blendMode == "" {
		blendMode = "merge"
	}

	log.Printf("Combining %d images with model %s: %s", len(input.InputImagePaths), model, input.CombinePrompt)

	// Object keys are fetched first so every source resolves from a local
	// path; the cleanups run whether or not resolution succeeds.
	var cleanups []func()
	defer func() {
		for _, cleanup := range cleanups {
			if cleanup != nil {
				cleanup()
			}
		}
	}()

	sources := make([]media.Source, 0, len(input.InputImagePaths))
	for i, imagePath := range input.InputImagePaths {
		localPath, cleanup, err := s.resolveInputPath(ctx, imagePath)
		if err != nil {
			return errorResult("failed to resolve image %d (%s): %v", i+1, imagePath, err), MultiImageOutput{}, nil
		}
		if cleanup != nil {
			cleanups = append(cleanups, cleanup)
		}
		src, err := media.NewSource("", localPath, "", "")
		if err != nil {
			return errorResult("failed to resolve image %d (%s): %v", i+1, imagePath, err), MultiImageOutput{}, nil
		}
		sources = append(sources, src)
	}

	plans, err := s.coordinator.ResolveAll(ctx, sources)
	if err != nil {
		return errorResult("failed to prepare input images: %v", err), MultiImageOutput{}, nil
	}

	var promptParts []string
	promptParts = append(promptParts, input.CombinePrompt)
	switch blendMode {
	case "collage":
		promptParts = append(promptParts, "Create a collage arrangement of the images")
	case "overlay":
		promptParts = append(promptParts, "Overlay the images with artistic blending")
	case "sequence":
		promptParts = append(promptParts, "Arrange the images in a sequence or timeline")
	default:
		promptParts = append(promptParts, "Seamlessly merge the images into a cohesive composition")
	}

	parts := []*genai.Part{genai.NewPartFromText(strings.Join(promptParts, ". "))}
	for _, plan := range plans {
		part, err := partFromPlan(plan)
		if err != nil {
			return errorResult("failed to prepare input images: %v", err), MultiImageOutput{}, nil
		}
		parts = append(parts, part)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	response, err := s.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return errorResult("error combining images: %v", err), MultiImageOutput{}, nil
	}
	if response == nil || len(response.Candidates) == 0 {
		return errorResult("no combined content was generated"), MultiImageOutput{}, nil
	}

	stored := s.storeImageParts(ctx, response, "gemini_multi")
	if stored.count == 0 {
		return errorResult("no combined image was returned"), MultiImageOutput{}, nil
	}

	return stored.result(), MultiImageOutput{
		InputImages:     input.InputImagePaths,
		CombinedImage:   stored.lastLocation,
		BlendMode:       blendMode,
		Model:           model,
		SavedFiles:      stored.savedFiles,
		DownloadURLs:    stored.downloadURLs,
		ExpiresAt:       stored.expiresAt,
		GeneratedAt:     time.Now().Format("20060102_150405"),
		ImagesProcessed: len(input.InputImagePaths),
	}, nil
}

// sourceFromFields builds a media.Source from the three mutually exclusive
// tool-input fields. Relative paths and storage object keys are materialized
// locally first; the returned cleanup (possibly nil) removes any temp copy.
func (s *Server) sourceFromFields(ctx context.Context, path, url, fileURI, mimeType string) (media.Source, func(), error) {
	if path != "" {
		localPath, cleanup, err := s.resolveInputPath(ctx, path)
		if err != nil {
			return media.Source{}, nil, err
		}
		src, err := media.NewSource("", localPath, "", "")
		if err != nil {
			if cleanup != nil {
				cleanup()
			}
			return media.Source{}, nil, err
		}
		return src, cleanup, nil
	}
	src, err := media.NewSource(url, "", fileURI, mimeType)
	return src, nil, err
}

// storedImages accumulates the artifacts saved from one generation response.
type storedImages struct {
	remote       bool
	count        int
	savedFiles   []string
	downloadURLs []string
	expiresAt    string
	lastLocation string
	contents     []mcp.Content
}

// storeImageParts persists every inline image part of the response and
// collects what the tool result needs.
func (s *Server) storeImageParts(ctx context.Context, response *genai.GenerateContentResponse, prefix string) *storedImages {
	stored := &storedImages{remote: s.storage.IsRemote()}
	for _, candidate := range response.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mimeType := part.InlineData.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			stored.add(ctx, s.storage, part.InlineData.Data, mimeType, prefix)
		}
	}
	return stored
}

// add persists one image and records its reference. A storage failure is
// logged; the image still counts toward the generated total.
func (st *storedImages) add(ctx context.Context, store storage.Storage, data []byte, mimeType, prefix string) {
	st.count++

	result, err := store.Store(ctx, data, mimeType, prefix)
	if err != nil {
		log.Printf("Error storing image: %v", err)
		return
	}
	st.savedFiles = append(st.savedFiles, result.ObjectKey)
	st.lastLocation = result.Location
	log.Printf("Stored image: %s", result.Location)

	if st.remote {
		st.downloadURLs = append(st.downloadURLs, result.Location)
		if result.ExpiresAt != nil && st.expiresAt == "" {
			st.expiresAt = result.ExpiresAt.Format(time.RFC3339)
		}
	} else {
		st.contents = append(st.contents, &mcp.ImageContent{
			Data:     data,
			MIMEType: mimeType,
		})
	}
}

// result builds the tool response: presigned URLs for remote storage,
// inline image content for local storage.
func (st *storedImages) result() *mcp.CallToolResult {
	if st.remote {
		var text strings.Builder
		fmt.Fprintf(&text, "Generated %d image(s). Download URLs:\n", len(st.downloadURLs))
		for i, url := range st.downloadURLs {
			fmt.Fprintf(&text, "%d. %s\n", i+1, url)
		}
		if st.expiresAt != "" {
			fmt.Fprintf(&text, "\nURLs expire at: %s", st.expiresAt)
		}
		return textResult(text.String())
	}
	if len(st.contents) > 0 {
		return &mcp.CallToolResult{Content: st.contents}
	}
	return nil
}
