package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/genai"
)

type TextToVideoInput struct {
	Prompt         string `json:"prompt" jsonschema:"description:Detailed text prompt describing the video to generate. Be specific about scenes, actions, camera movement, lighting, and mood."`
	NegativePrompt string `json:"negative_prompt,omitempty" jsonschema:"description:Elements to avoid in the generated video"`
	Model          string `json:"model,omitempty" jsonschema:"description:Veo model to use for video generation."`
	AspectRatio    string `json:"aspect_ratio,omitempty" jsonschema:"description:Video aspect ratio: '16:9' (landscape) or '9:16' (portrait),default:16:9"`
	Resolution     string `json:"resolution,omitempty" jsonschema:"description:Video resolution: '720p' or '1080p',default:720p"`
	Seed           int64  `json:"seed,omitempty" jsonschema:"description:Optional seed for reproducible generation"`
}

type ImageToVideoInput struct {
	ImagePath      string `json:"image_path" jsonschema:"description:Local file path or storage object key of the starting image for the video"`
	Prompt         string `json:"prompt" jsonschema:"description:Text prompt describing how the image should animate into video"`
	NegativePrompt string `json:"negative_prompt,omitempty" jsonschema:"description:Elements to avoid in the generated video"`
	Model          string `json:"model,omitempty" jsonschema:"description:Veo model to use for video generation."`
	AspectRatio    string `json:"aspect_ratio,omitempty" jsonschema:"description:Video aspect ratio: '16:9' (landscape) or '9:16' (portrait),default:16:9"`
	Resolution     string `json:"resolution,omitempty" jsonschema:"description:Video resolution: '720p' or '1080p',default:720p"`
	Seed           int64  `json:"seed,omitempty" jsonschema:"description:Optional seed for reproducible generation"`
}

type VideoGenerationOutput struct {
	OperationID     string            `json:"operation_id"`
	Status          string            `json:"status"`
	Model           string            `json:"model"`
	AspectRatio     string            `json:"aspect_ratio"`
	Resolution      string            `json:"resolution"`
	SavedFiles      []string          `json:"saved_files,omitempty"`
	DownloadURLs    []string          `json:"download_urls,omitempty"`
	ExpiresAt       string            `json:"expires_at,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	GeneratedAt     string            `json:"generated_at"`
	EstimatedLength string            `json:"estimated_length"`
}

func (s *Server) handleTextToVideo(ctx context.Context, req *mcp.CallToolRequest, input TextToVideoInput) (*mcp.CallToolResult, VideoGenerationOutput, error) {
	if input.Prompt == "" {
		return errorResult("prompt is required"), VideoGenerationOutput{}, nil
	}

	model := input.Model
	if model == "" {
		model = s.config.VideoModel
	}
	aspectRatio := input.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "16:9"
	}
	resolution := input.Resolution
	if resolution == "" {
		resolution = "720p"
	}

	log.Printf("Generating text-to-video with model %s: %s (aspect: %s, resolution: %s)",
		model, input.Prompt, aspectRatio, resolution)

	promptText := input.Prompt
	if input.NegativePrompt != "" {
		promptText = fmt.Sprintf("%s. Avoid: %s", input.Prompt, input.NegativePrompt)
	}

	operation, err := s.client.Models.GenerateVideos(ctx, model, promptText, nil, nil)
	if err != nil {
		return errorResult("error starting video generation: %v", err), VideoGenerationOutput{}, nil
	}
	log.Printf("Text-to-video generation started with operation ID: %s", operation.Name)

	return s.finishVideoGeneration(ctx, operation, videoResultParams{
		model:       model,
		aspectRatio: aspectRatio,
		resolution:  resolution,
		prompt:      input.Prompt,
		negative:    input.NegativePrompt,
		seed:        input.Seed,
		prefix:      "veo_text2video",
		label:       "Text-to-video",
	})
}

func (s *Server) handleImageToVideo(ctx context.Context, req *mcp.CallToolRequest, input ImageToVideoInput) (*mcp.CallToolResult, VideoGenerationOutput, error) {
	if input.ImagePath == "" {
		return errorResult("image_path is required"), VideoGenerationOutput{}, nil
	}
	if input.Prompt == "" {
		return errorResult("prompt is required"), VideoGenerationOutput{}, nil
	}

	localImagePath, cleanup, err := s.resolveInputPath(ctx, input.ImagePath)
	if err != nil {
		return errorResult("failed to resolve input image: %v", err), VideoGenerationOutput{}, nil
	}
	if cleanup != nil {
		defer cleanup()
	}

	model := input.Model
	if model == "" {
		model = s.config.VideoModel
	}
	aspectRatio := input.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "16:9"
	}
	resolution := input.Resolution
	if resolution == "" {
		resolution = "720p"
	}

	log.Printf("Generating image-to-video with model %s for image: %s, prompt: %s (aspect: %s, resolution: %s)",
		model, input.ImagePath, input.Prompt, aspectRatio, resolution)

	imageData, err := os.ReadFile(localImagePath)
	if err != nil {
		return errorResult("failed to read input image: %v", err), VideoGenerationOutput{}, nil
	}
	inputImage := &genai.Image{ImageBytes: imageData}

	promptText := input.Prompt
	if input.NegativePrompt != "" {
		promptText = fmt.Sprintf("%s. Avoid: %s", input.Prompt, input.NegativePrompt)
	}

	operation, err := s.client.Models.GenerateVideos(ctx, model, promptText, inputImage, nil)
	if err != nil {
		return errorResult("error starting image-to-video generation: %v", err), VideoGenerationOutput{}, nil
	}
	log.Printf("Image-to-video generation started with operation ID: %s", operation.Name)

	return s.finishVideoGeneration(ctx, operation, videoResultParams{
		model:       model,
		aspectRatio: aspectRatio,
		resolution:  resolution,
		prompt:      input.Prompt,
		negative:    input.NegativePrompt,
		seed:        input.Seed,
		prefix:      "veo_img2video",
		label:       "Image-to-video",
		sourceImage: input.ImagePath,
	})
}

type videoResultParams struct {
	model       string
	aspectRatio string
	resolution  string
	prompt      string
	negative    string
	seed        int64
	prefix      string
	label       string
	sourceImage string
}

// finishVideoGeneration polls the long-running operation to completion,
// downloads the produced video and stores it. The poll cadence follows the
// configured interval and attempt cap.
func (s *Server) finishVideoGeneration(ctx context.Context, operation *genai.GenerateVideosOperation, params videoResultParams) (*mcp.CallToolResult, VideoGenerationOutput, error) {
	operationID := operation.Name
	timestamp := time.Now().Format("20060102_150405")

	var err error
	for i := 0; i < s.config.PollMaxAttempts && !operation.Done; i++ {
		log.Printf("Waiting for %s generation to complete... (attempt %d/%d)",
			params.label, i+1, s.config.PollMaxAttempts)
		select {
		case <-time.After(s.config.PollInterval):
		case <-ctx.Done():
			return errorResult("%s generation cancelled: %v", params.label, ctx.Err()), VideoGenerationOutput{}, nil
		}
		operation, err = s.client.Operations.GetVideosOperation(ctx, operation, nil)
		if err != nil {
			log.Printf("Error checking operation status: %v", err)
			break
		}
	}

	status := "processing"
	var savedFiles, downloadURLs []string
	var expiresAt string

	if operation.Done {
		if operation.Error != nil {
			status = "failed"
			return errorResult("%s generation failed: %v", params.label, operation.Error), VideoGenerationOutput{}, nil
		}
		if operation.Response != nil && len(operation.Response.GeneratedVideos) > 0 {
			status = "completed"
			video := operation.Response.GeneratedVideos[0]
			log.Printf("%s generation completed successfully", params.label)

			downloadURI := genai.NewDownloadURIFromVideo(video.Video)
			videoData, err := s.client.Files.Download(ctx, downloadURI, nil)
			if err != nil {
				return errorResult("error downloading generated video: %v", err), VideoGenerationOutput{}, nil
			}

			result, err := s.storage.Store(ctx, videoData, "video/mp4", params.prefix)
			if err != nil {
				return errorResult("error storing generated video: %v", err), VideoGenerationOutput{}, nil
			}
			savedFiles = append(savedFiles, result.ObjectKey)
			log.Printf("Stored video: %s", result.Location)

			if s.storage.IsRemote() {
				downloadURLs = append(downloadURLs, result.Location)
				if result.ExpiresAt != nil {
					expiresAt = result.ExpiresAt.Format(time.RFC3339)
				}
			}
		}
	} else {
		log.Printf("%s generation still processing after %d attempts (operation %s)",
			params.label, s.config.PollMaxAttempts, operationID)
	}

	metadata := map[string]string{
		"original_prompt": params.prompt,
		"operation_id":    operationID,
	}
	if params.negative != "" {
		metadata["negative_prompt"] = params.negative
	}
	if params.sourceImage != "" {
		metadata["source_image"] = params.sourceImage
	}
	if params.seed > 0 {
		metadata["seed"] = fmt.Sprintf("%d", params.seed)
	}

	var result *mcp.CallToolResult
	switch {
	case status == "completed" && len(downloadURLs) > 0:
		contentText := fmt.Sprintf("%s generated. Download URL:\n%s", params.label, downloadURLs[0])
		if expiresAt != "" {
			contentText += fmt.Sprintf("\n\nURL expires at: %s", expiresAt)
		}
		result = textResult(contentText)
	case status == "completed" && len(savedFiles) > 0:
		result = textResult(fmt.Sprintf("%s generated and saved as: %s", params.label, savedFiles[0]))
	case status == "processing":
		result = textResult(fmt.Sprintf("%s generation is still processing. Operation ID: %s", params.label, operationID))
	}

	return result, VideoGenerationOutput{
		OperationID:     operationID,
		Status:          status,
		Model:           params.model,
		AspectRatio:     params.aspectRatio,
		Resolution:      params.resolution,
		SavedFiles:      savedFiles,
		DownloadURLs:    downloadURLs,
		ExpiresAt:       expiresAt,
		Metadata:        metadata,
		GeneratedAt:     timestamp,
		EstimatedLength: "8 seconds",
	}, nil
}
