package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rzbill/flo-transform/internal/eventlog"
)

// sseSink writes tailed entries as Server-Sent Events. The event id is the
// entry offset so clients can resume with start=id+1.
type sseSink struct {
	w http.ResponseWriter
}

// Send writes one "id:"/"data:" event holding the JSON-encoded entry.
func (s sseSink) Send(e eventlog.Entry) error {
	b, err := json.Marshal(toEntryJSON(e))
	if err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("id: " + strconv.FormatUint(e.Offset, 10) + "\ndata: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	_, err = s.w.Write([]byte("\n\n"))
	return err
}

// Flush flushes the HTTP response writer if it supports flushing.
func (s sseSink) Flush() error {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
