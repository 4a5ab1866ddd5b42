package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestSpinnerDrawsAndClears(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(context.Background(), &buf, "Detecting communities...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Detecting communities...") {
		t.Errorf("spinner output missing message: %q", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Errorf("spinner should clear its line on stop: %q", out)
	}
	if s.Cancelled() {
		t.Error("a stopped spinner is not cancelled")
	}
}

func TestSpinnerCancelledByContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinner(ctx, &bytes.Buffer{}, "Waiting...")
	s.Start()
	time.Sleep(150 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should be cancelled after context timeout")
	}
	s.Stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner(context.Background(), &bytes.Buffer{}, "Testing...")
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s := newSpinner(context.Background(), &bytes.Buffer{}, "Never started")
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a spinner that never started")
	}
}

func TestSpinnerStopWithMessages(t *testing.T) {
	tests := []struct {
		name string
		stop func(*Spinner)
		want string
	}{
		{"success", func(s *Spinner) { s.StopWithSuccess("Detected 2 communities") }, iconSuccess + " Detected 2 communities"},
		{"error", func(s *Spinner) { s.StopWithError("Detection failed") }, iconError + " Detection failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := newSpinner(context.Background(), &buf, "Working...")
			s.Start()
			s.SetMessage("Still working...")
			tt.stop(s)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
