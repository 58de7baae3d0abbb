// Package media decides how a referenced piece of content reaches the
// generation API: inlined as base64, staged through the remote file store,
// or passed through untouched. It also drives the upload-and-poll lifecycle
// for large files, reporting terminal outcomes via notifications.
package media

import (
	"fmt"
	"strings"
)

// SourceKind discriminates the Source union.
type SourceKind int

const (
	SourceURL SourceKind = iota + 1
	SourceLocalPath
	SourceRemote
)

// Source is a reference to content to be processed. Exactly one variant is
// populated; NewSource is the only way to construct a valid value.
type Source struct {
	kind         SourceKind
	url          string
	localPath    string
	remoteHandle string
	remoteMIME   string
}

// NewSource parses the raw tool-input fields into a single-variant Source.
// Zero or more than one populated field is a *ValidationError.
func NewSource(url, localPath, remoteHandle, remoteMIME string) (Source, error) {
	populated := 0
	for _, v := range []string{url, localPath, remoteHandle} {
		if strings.TrimSpace(v) != "" {
			populated++
		}
	}
	if populated == 0 {
		return Source{}, &ValidationError{Reason: "one of url, local path, or remote file handle is required"}
	}
	if populated > 1 {
		return Source{}, &ValidationError{Reason: "url, local path, and remote file handle are mutually exclusive"}
	}

	switch {
	case url != "":
		return Source{kind: SourceURL, url: url}, nil
	case localPath != "":
		return Source{kind: SourceLocalPath, localPath: localPath}, nil
	default:
		if strings.TrimSpace(remoteMIME) == "" {
			return Source{}, &ValidationError{Reason: "mime_type is required with a remote file handle"}
		}
		return Source{kind: SourceRemote, remoteHandle: remoteHandle, remoteMIME: remoteMIME}, nil
	}
}

func (s Source) Kind() SourceKind { return s.kind }

// Describe returns the reference for logs and notifications.
func (s Source) Describe() string {
	switch s.kind {
	case SourceURL:
		return s.url
	case SourceLocalPath:
		return s.localPath
	case SourceRemote:
		return s.remoteHandle
	default:
		return "<unset>"
	}
}

func (s Source) String() string {
	return fmt.Sprintf("source(%s)", s.Describe())
}

// Plan describes how a resolved Source reaches the generation call. It is
// computed once and immutable.
type Plan interface {
	planKind()
}

// Inline embeds the bytes as base64 directly in the request.
type Inline struct {
	MIMEType string
	Data     string // base64-encoded content
}

// RemoteUpload references a file staged in the remote object store.
type RemoteUpload struct {
	MIMEType   string
	RemoteName string
	RemoteURI  string
}

// DirectReference passes a URI through untouched, e.g. a YouTube URL or a
// pre-existing remote file handle.
type DirectReference struct {
	URI      string
	MIMEType string // may be empty for pass-through URLs
}

func (Inline) planKind()          {}
func (RemoteUpload) planKind()    {}
func (DirectReference) planKind() {}

// passthroughPrefixes are URL shapes the generation endpoint consumes
// directly; they must never be downloaded or uploaded.
var passthroughPrefixes = []string{
	"https://www.youtube.com/watch",
	"https://youtube.com/watch",
	"https://m.youtube.com/watch",
	"https://www.youtube.com/shorts/",
	"https://youtube.com/shorts/",
	"https://youtu.be/",
}

func isPassthroughURL(rawURL string) bool {
	for _, prefix := range passthroughPrefixes {
		if strings.HasPrefix(rawURL, prefix) {
			return true
		}
	}
	return false
}
