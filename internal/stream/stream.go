// Package stream emits the review as server-sent events: JSON frames
// with explicit section boundaries, sequence numbers, and a terminal
// complete event.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"reviewd/internal/review"
)

// EventType enumerates the frame types on the wire.
type EventType string

const (
	EventSectionStart    EventType = "section_start"
	EventContent         EventType = "content"
	EventSectionComplete EventType = "section_complete"
	EventComplete        EventType = "complete"
	EventError           EventType = "error"
)

const (
	// DefaultChunkSize is the number of characters per content frame.
	DefaultChunkSize = 50
	// DefaultChunkDelay is the spacing between content frames.
	DefaultChunkDelay = 10 * time.Millisecond

	// placeholder is streamed when a section came back empty.
	placeholder = "No specific issues found in this category."
)

// Frame is one JSON-encoded SSE payload.
type Frame struct {
	Type    EventType `json:"type"`
	Seq     int       `json:"seq"`
	Section string    `json:"section,omitempty"`
	Content string    `json:"content,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Options configures an Emitter. Zero values fall back to the defaults.
type Options struct {
	ChunkSize int
	Delay     time.Duration
	// Flush is called after every frame; on an http.ResponseWriter this
	// should be the Flusher's Flush so frames leave the server buffer
	// immediately.
	Flush func()
}

// Emitter writes SSE frames for a parsed review. Not safe for
// concurrent use; one emitter serves one response stream.
type Emitter struct {
	w     io.Writer
	opts  Options
	seq   int
	delay func(ctx context.Context, d time.Duration) error
}

// NewEmitter creates an emitter writing to w.
func NewEmitter(w io.Writer, opts Options) *Emitter {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultChunkDelay
	}
	return &Emitter{w: w, opts: opts, delay: sleep}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// send marshals and writes one frame, assigning the next sequence number.
func (e *Emitter) send(f Frame) error {
	f.Seq = e.seq
	e.seq++

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	if e.opts.Flush != nil {
		e.opts.Flush()
	}
	return nil
}

// StreamSections emits the four sections in fixed order, chunking each
// body into content frames, then the terminal complete frame. An empty
// section gets a single placeholder content frame.
func (e *Emitter) StreamSections(ctx context.Context, result review.Result) error {
	for _, section := range review.Order() {
		if err := e.send(Frame{Type: EventSectionStart, Section: string(section)}); err != nil {
			return err
		}

		content := strings.TrimSpace(result.Content(section))
		if content == "" {
			if err := e.send(Frame{Type: EventContent, Section: string(section), Content: placeholder}); err != nil {
				return err
			}
		} else {
			for _, chunk := range Chunks(content, e.opts.ChunkSize) {
				if err := e.send(Frame{Type: EventContent, Section: string(section), Content: chunk}); err != nil {
					return err
				}
				if err := e.delay(ctx, e.opts.Delay); err != nil {
					return err
				}
			}
		}

		if err := e.send(Frame{Type: EventSectionComplete, Section: string(section)}); err != nil {
			return err
		}
	}

	return e.send(Frame{Type: EventComplete})
}

// Error emits the single degraded error frame: the error's type name and
// message. The stream ends here; no complete frame follows.
func (e *Emitter) Error(err error) error {
	return e.send(Frame{Type: EventError, Message: fmt.Sprintf("%s: %s", errorTypeName(err), err.Error())})
}

// Chunks splits s into rune-safe pieces of at most size characters.
func Chunks(s string, size int) []string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// errorTypeName returns the bare Go type name of an error, without the
// package path or pointer marker.
func errorTypeName(err error) string {
	t := reflect.TypeOf(err)
	if t == nil {
		return "error"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}
