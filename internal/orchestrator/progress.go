package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/dusk-indust/casier/internal/artifact"
)

// ProgressEvent reports an artifact entering a new lifecycle state.
type ProgressEvent struct {
	ArtifactID   string
	DocumentType string
	Status       artifact.Status
	Message      string
	At           time.Time
}

// ProgressReporter carries lifecycle events from the orchestrator to a single
// consumer (the CLI printer or the RPC event broadcaster).
type ProgressReporter struct {
	mu     sync.RWMutex
	ch     chan ProgressEvent
	closed bool
}

// NewProgressReporter buffers up to 64 undelivered events.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit never blocks dispatch; events beyond the buffer are dropped, and so
// is everything emitted after Close.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	if pr.closed {
		return
	}
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns the event channel. It is closed by Close.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close ends the stream. Calling it again is a no-op.
func (pr *ProgressReporter) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		return
	}
	pr.closed = true
	close(pr.ch)
}

// FormatProgress renders an event as one CLI line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case artifact.StatusPending:
		return fmt.Sprintf("  ○ %s (pending)", event.DocumentType)
	case artifact.StatusGenerating:
		return fmt.Sprintf("  ● %s...", event.DocumentType)
	case artifact.StatusReady:
		return fmt.Sprintf("  ◐ %s ready for review", event.DocumentType)
	case artifact.StatusCompleted:
		return fmt.Sprintf("  ✓ %s complete", event.DocumentType)
	case artifact.StatusError:
		return fmt.Sprintf("  ✗ %s failed: %s", event.DocumentType, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.DocumentType)
	}
}
