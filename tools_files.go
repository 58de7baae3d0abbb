package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"gemini-media-mcp/internal/filestore"
)

type ListFilesInput struct {
	PageSize  int    `json:"page_size,omitempty" jsonschema:"description:Maximum number of files to return (default 100)"`
	PageToken string `json:"page_token,omitempty" jsonschema:"description:Page token from a previous gemini_list_files call"`
}

type ListFilesOutput struct {
	Files         []filestore.RemoteObject `json:"files"`
	NextPageToken string                   `json:"next_page_token,omitempty"`
	Count         int                      `json:"count"`
}

type DeleteFileInput struct {
	Name string `json:"name" jsonschema:"description:Resource name of the remote file to delete, e.g. 'files/abc123' (as returned by gemini_list_files or gemini_upload_file)"`
}

type DeleteFileOutput struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

type UploadFileInput struct {
	FilePath string `json:"file_path" jsonschema:"description:Absolute local path of the file to upload to the Gemini Files API. The upload runs in the background; completion is reported through the configured notification channels."`
}

type UploadFileOutput struct {
	FilePath  string `json:"file_path"`
	SizeBytes int64  `json:"size_bytes"`
	Started   bool   `json:"started"`
	NotifyVia string `json:"notify_via"`
}

func (s *Server) handleListFiles(ctx context.Context, req *mcp.CallToolRequest, input ListFilesInput) (*mcp.CallToolResult, ListFilesOutput, error) {
	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	files, nextPageToken, err := s.files.List(ctx, pageSize, input.PageToken)
	if err != nil {
		return errorResult("error listing remote files: %v", err), ListFilesOutput{}, nil
	}

	var text strings.Builder
	if len(files) == 0 {
		text.WriteString("No files are stored remotely.")
	} else {
		fmt.Fprintf(&text, "%d remote file(s):\n", len(files))
		for _, file := range files {
			fmt.Fprintf(&text, "- %s (%s, %s bytes, %s)\n", file.Name, file.MIMEType, file.SizeBytes, file.State)
		}
		if nextPageToken != "" {
			fmt.Fprintf(&text, "\nMore files available; pass page_token %q to continue.", nextPageToken)
		}
	}

	return textResult(text.String()), ListFilesOutput{
		Files:         files,
		NextPageToken: nextPageToken,
		Count:         len(files),
	}, nil
}

func (s *Server) handleDeleteFile(ctx context.Context, req *mcp.CallToolRequest, input DeleteFileInput) (*mcp.CallToolResult, DeleteFileOutput, error) {
	if input.Name == "" {
		return errorResult("name is required"), DeleteFileOutput{}, nil
	}
	name := input.Name
	if !strings.HasPrefix(name, "files/") {
		name = "files/" + name
	}

	if err := s.files.Delete(ctx, name); err != nil {
		return errorResult("error deleting remote file %s: %v", name, err), DeleteFileOutput{}, nil
	}

	log.Printf("Deleted remote file: %s", name)
	return textResult(fmt.Sprintf("Deleted remote file: %s", name)), DeleteFileOutput{
		Name:    name,
		Deleted: true,
	}, nil
}

func (s *Server) handleUploadFile(ctx context.Context, req *mcp.CallToolRequest, input UploadFileInput) (*mcp.CallToolResult, UploadFileOutput, error) {
	if input.FilePath == "" {
		return errorResult("file_path is required"), UploadFileOutput{}, nil
	}
	if !filepath.IsAbs(input.FilePath) {
		return errorResult("file_path must be an absolute path: %s", input.FilePath), UploadFileOutput{}, nil
	}

	info, err := os.Stat(input.FilePath)
	if err != nil {
		return errorResult("file not found: %s", input.FilePath), UploadFileOutput{}, nil
	}
	if info.IsDir() {
		return errorResult("file_path is a directory: %s", input.FilePath), UploadFileOutput{}, nil
	}

	notifier := s.coordinator.Notifier()
	s.coordinator.StartUpload(input.FilePath)

	var text strings.Builder
	fmt.Fprintf(&text, "Upload of %s (%d bytes) started in the background.\n", input.FilePath, info.Size())
	if notifier.IsConfigured() {
		fmt.Fprintf(&text, "You will be notified via %s when the file is ready.", notifier.Describe())
	} else {
		text.WriteString("No notification channels are configured; use gemini_list_files to check when the file becomes ACTIVE.")
	}

	return textResult(text.String()), UploadFileOutput{
		FilePath:  input.FilePath,
		SizeBytes: info.Size(),
		Started:   true,
		NotifyVia: notifier.Describe(),
	}, nil
}
