package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"gemini-media-mcp/internal/filestore"
)

// Outcome is the terminal (or pending) disposition of an UploadTask.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
)

// UploadTask is the in-memory record of one upload-and-poll lifecycle. It is
// never persisted; a process restart silently drops in-flight tasks.
type UploadTask struct {
	Description string
	MIMEType    string
	Remote      *filestore.RemoteObject
	Attempts    int
	Outcome     Outcome
}

// finish records a terminal outcome. A task already terminal stays as it is.
func (t *UploadTask) finish(outcome Outcome) {
	if t.Outcome != OutcomePending {
		return
	}
	t.Outcome = outcome
}

// Plan returns the transfer plan for a successfully staged upload, suitable
// as a file reference in a later generation request.
func (t *UploadTask) Plan() (Plan, error) {
	if t.Outcome != OutcomeSucceeded || t.Remote == nil {
		return nil, &ValidationError{Reason: "upload has not completed successfully"}
	}
	return RemoteUpload{MIMEType: t.MIMEType, RemoteName: t.Remote.Name, RemoteURI: t.Remote.URI}, nil
}

// StartUpload launches the upload-and-poll sequence for path in a detached
// goroutine and returns immediately. The sequence reports its terminal
// outcome through the notifier; nothing downstream observes its completion.
func (c *Coordinator) StartUpload(path string) {
	go func() {
		// Detached from the request that spawned it on purpose: the MCP
		// call has already returned by the time this runs.
		c.UploadAndPoll(context.Background(), path)
	}()
}

// UploadAndPoll runs the full large-file lifecycle synchronously: read,
// two-phase upload, poll until the remote object is usable or fails or the
// attempt ceiling is hit. Exactly one notification is sent per terminal
// outcome, including upload failures.
func (c *Coordinator) UploadAndPoll(ctx context.Context, path string) *UploadTask {
	task := &UploadTask{Description: path, Outcome: OutcomePending}

	data, err := os.ReadFile(path)
	if err != nil {
		c.failTask(ctx, task, fmt.Errorf("failed to read %s: %w", path, err))
		return task
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		c.failTask(ctx, task, fmt.Errorf("failed to detect MIME type of %s: %w", path, err))
		return task
	}
	task.MIMEType = detected.String()
	if !supportedMIME(task.MIMEType) {
		c.failTask(ctx, task, &ValidationError{Reason: "unsupported MIME type: " + task.MIMEType})
		return task
	}

	log.Printf("Uploading %s (%d bytes, %s)", path, len(data), task.MIMEType)

	sessionURL, err := c.store.BeginUpload(ctx, path, task.MIMEType, int64(len(data)))
	if err != nil {
		c.failTask(ctx, task, err)
		return task
	}
	remote, err := c.store.SendBytes(ctx, sessionURL, data, task.MIMEType)
	if err != nil {
		c.failTask(ctx, task, err)
		return task
	}
	task.Remote = remote

	// Polling starts only now that the transfer itself has completed.
	final, err := c.pollUntilTerminal(ctx, task, remote.Name)
	if final != nil {
		task.Remote = final
	}
	switch {
	case err == nil:
		task.finish(OutcomeSucceeded)
		c.notify(ctx, task, "✅ Upload complete", timestampOf(task.Remote))
	default:
		if _, timedOut := err.(*PollTimeoutError); timedOut {
			task.finish(OutcomeTimedOut)
			c.notify(ctx, task, "⏰ Upload timed out while processing", timestampOf(task.Remote))
		} else {
			task.finish(OutcomeFailed)
			c.notify(ctx, task, "❌ Upload failed: "+err.Error(), timestampOf(task.Remote))
		}
	}
	return task
}

// pollUntilTerminal checks the remote state at a fixed interval up to the
// attempt ceiling. A transport error on a single attempt is logged and
// retried; only ACTIVE and FAILED stop the loop early.
func (c *Coordinator) pollUntilTerminal(ctx context.Context, task *UploadTask, name string) (*filestore.RemoteObject, error) {
	var last *filestore.RemoteObject
	for attempt := 1; attempt <= c.pollMaxAttempts; attempt++ {
		task.Attempts = attempt

		obj, err := c.store.GetStatus(ctx, name)
		if err != nil {
			log.Printf("Status check %d/%d for %s failed: %v", attempt, c.pollMaxAttempts, name, err)
		} else {
			last = obj
			switch obj.State {
			case filestore.StateActive:
				return obj, nil
			case filestore.StateFailed:
				return obj, &RemoteProcessingError{Name: name}
			}
			log.Printf("Status check %d/%d for %s: %s", attempt, c.pollMaxAttempts, name, obj.State)
		}

		if attempt < c.pollMaxAttempts {
			if err := sleepCtx(ctx, c.pollInterval); err != nil {
				return last, &PollTimeoutError{Name: name, Attempts: attempt}
			}
		}
	}
	return last, &PollTimeoutError{Name: name, Attempts: c.pollMaxAttempts}
}

func (c *Coordinator) failTask(ctx context.Context, task *UploadTask, err error) {
	log.Printf("Upload of %s failed: %v", task.Description, err)
	task.finish(OutcomeFailed)
	c.notify(ctx, task, "❌ Upload failed: "+err.Error(), timestampOf(task.Remote))
}

// notify sends the single terminal notification for a task. All three
// outcomes share the same field set behind their distinct headline.
func (c *Coordinator) notify(ctx context.Context, task *UploadTask, headline, timestamp string) {
	if c.notifier == nil || !c.notifier.IsConfigured() {
		return
	}
	uri := "N/A"
	mimeType := task.MIMEType
	if mimeType == "" {
		mimeType = "N/A"
	}
	if task.Remote != nil && task.Remote.URI != "" {
		uri = task.Remote.URI
	}
	c.notifier.Notify(ctx, fmt.Sprintf("%s\nSource: %s\nURI: %s\nMIME type: %s\nTime: %s",
		headline, task.Description, uri, mimeType, timestamp))
}

// timestampOf renders the remote object's update time for humans, or "N/A"
// when the service did not supply one.
func timestampOf(obj *filestore.RemoteObject) string {
	if obj == nil || obj.UpdateTime == "" {
		return "N/A"
	}
	if parsed, err := time.Parse(time.RFC3339Nano, obj.UpdateTime); err == nil {
		return parsed.Local().Format("2006-01-02 15:04:05 MST")
	}
	return obj.UpdateTime
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
