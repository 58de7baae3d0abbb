package media

import "fmt"

// ValidationError reports malformed or contradictory input. It surfaces
// immediately and is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Reason
}

// SizeLimitError means the resolved byte length exceeds the inline threshold
// on a path that does not support remote upload.
type SizeLimitError struct {
	Size  int64
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("file size %d bytes exceeds the %d byte inline limit; use the gemini_upload_file tool for large files", e.Size, e.Limit)
}

// RemoteProcessingError means the remote store reported a terminal FAILED
// state for an uploaded object.
type RemoteProcessingError struct {
	Name string
}

func (e *RemoteProcessingError) Error() string {
	return fmt.Sprintf("remote processing failed for %s", e.Name)
}

// PollTimeoutError means the attempt ceiling was exhausted without the
// remote object reaching a terminal state.
type PollTimeoutError struct {
	Name     string
	Attempts int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("gave up waiting for %s after %d status checks", e.Name, e.Attempts)
}
