package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/internal/metrics"
)

// sseSink writes one "data: {json}\n\n" frame per event and flushes it straight away.
type sseSink struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newSSESink(w http.ResponseWriter) *sseSink {
	rc := http.NewResponseController(w)
	// streams outlive the server wide write timeout
	_ = rc.SetWriteDeadline(time.Now().Add(config.StreamWriteTimeout))

	h := w.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &sseSink{w: w, rc: rc}
}

func (s *sseSink) Send(event chatModel.StreamEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	metrics.CountStreamEvent(string(event.Type))
	return s.Flush()
}

func (s *sseSink) Flush() error {
	if err := s.rc.Flush(); err != nil {
		if f, ok := s.w.(http.Flusher); ok {
			f.Flush()
			return nil
		}
		return err
	}
	return nil
}
