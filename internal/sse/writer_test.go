package sse

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriterFraming(t *testing.T) {
	rec := httptest.NewRecorder()

	w, err := NewWriter(rec)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	if err := w.SendJSON(map[string]string{"content": "hi"}); err != nil {
		t.Fatalf("SendJSON: %v", err)
	}
	w.SendDone()

	want := "data: {\"content\":\"hi\"}\n\ndata: [DONE]\n\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("X-Accel-Buffering") != "no" {
		t.Error("proxy buffering not disabled")
	}
}

// writerOnly hides httptest.NewRecorder's Flush method.
type writerOnly struct{ rec *httptest.ResponseRecorder }

func (w writerOnly) Header() http.Header       { return w.rec.Header() }
func (w writerOnly) Write(b []byte) (int, error) { return w.rec.Write(b) }
func (w writerOnly) WriteHeader(statusCode int)  { w.rec.WriteHeader(statusCode) }

func TestWriterRequiresFlusher(t *testing.T) {
	if _, err := NewWriter(writerOnly{httptest.NewRecorder()}); err == nil {
		t.Error("expected error for non-flushing writer")
	}
}
