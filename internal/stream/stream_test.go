package stream

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/haasonsaas/conductor/pkg/models"
)

func TestWriter_WriteEventRoundTripsViaReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	events := []models.StreamEvent{
		{Type: models.StreamStreamStart, AgentID: "granny"},
		{Type: models.StreamToken, AgentID: "granny", Text: "hi"},
		{Type: models.StreamStreamEnd, AgentID: "granny"},
	}
	for _, ev := range events {
		if err := w.WriteEvent(ev); err != nil {
			t.Fatalf("write event: %v", err)
		}
	}

	r := NewReader(&buf)
	for i, want := range events {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("decode frame %d: %v", i, err)
		}
		if got.Type != want.Type || got.AgentID != want.AgentID || got.Text != want.Text {
			t.Fatalf("frame %d: got %+v, want %+v", i, got, want)
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected EOF after the last frame, got %v", err)
	}
}

func TestWriter_OneEventPerLine(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteEvent(models.StreamEvent{Type: models.StreamToken, Text: "a"})
	w.WriteEvent(models.StreamEvent{Type: models.StreamToken, Text: "b"})

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 NDJSON lines, got %d: %q", len(lines), buf.String())
	}
}

func TestPipe_DrainsUntilChannelCloses(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	events := make(chan models.StreamEvent, 2)
	events <- models.StreamEvent{Type: models.StreamStreamStart, AgentID: "granny"}
	events <- models.StreamEvent{Type: models.StreamStreamEnd, AgentID: "granny"}
	close(events)

	if err := Pipe(context.Background(), w, events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewReader(&buf)
	count := 0
	for {
		if _, err := r.Next(); err != nil {
			break
		}
		count++
	}
	if count != 2 {
		t.Fatalf("expected 2 frames piped through, got %d", count)
	}
}

func TestPipe_EmitsCancelledFrameOnContextDone(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan models.StreamEvent)
	err := Pipe(ctx, w, events)
	if err == nil {
		t.Fatal("expected the context error to propagate")
	}

	r := NewReader(&buf)
	ev, decodeErr := r.Next()
	if decodeErr != nil {
		t.Fatalf("expected a frame to have been written: %v", decodeErr)
	}
	if ev.Type != models.StreamError || ev.ErrorKind != "cancelled" {
		t.Fatalf("expected a cancelled error frame, got %+v", ev)
	}
}
