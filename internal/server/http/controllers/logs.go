package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rzbill/flo-transform/internal/eventlog"
	logsvc "github.com/rzbill/flo-transform/internal/services/logs"
)

// LogsController appends to and reads from partition logs. It is how records
// reach a transform's source topic and how its sink topic is inspected.
type LogsController struct {
	svc *logsvc.Service
}

// NewLogsController creates a new logs controller.
func NewLogsController(svc *logsvc.Service) *LogsController {
	return &LogsController{svc: svc}
}

// RegisterRoutes registers log routes with the given mux.
func (c *LogsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/logs/produce", c.handleProduce)
	mux.HandleFunc("/v1/logs/read", c.handleRead)
	mux.HandleFunc("/v1/logs/tail", c.handleTailSSE)
}

func (c *LogsController) handleProduce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	start := time.Now()
	var req produceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "At least one record is required")
		return
	}
	recs := make([]eventlog.Record, len(req.Records))
	for i, rec := range req.Records {
		recs[i] = eventlog.Record{Key: rec.Key, Value: rec.Value, Headers: rec.Headers}
	}
	offsets, err := c.svc.Produce(r.Context(), req.Namespace, req.Topic, req.Partition, recs)
	if err != nil {
		writeServiceError(w, err, "Failed to produce records")
		return
	}
	w.Header().Set("X-Produce-Latency-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(produceResp{Offsets: offsets})
}

// handleRead returns one page of a partition. Query: namespace, topic,
// partition, start, limit, reverse.
func (c *LogsController) handleRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	q := r.URL.Query()
	partition, err := parseUint32(q.Get("partition"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid partition")
		return
	}
	start, err := parseUint64(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start")
		return
	}
	res, err := c.svc.Read(logsvc.ReadRequest{
		Namespace: q.Get("namespace"),
		Topic:     q.Get("topic"),
		Partition: partition,
		Start:     start,
		Limit:     parseLimit(q.Get("limit")),
		Reverse:   parseBool(q.Get("reverse")),
	})
	if err != nil {
		writeServiceError(w, err, "Failed to read log")
		return
	}
	out := readResp{Entries: make([]entryJSON, 0, len(res.Entries)), NextOffset: res.NextOffset, LastOffset: res.LastOffset}
	for _, e := range res.Entries {
		out.Entries = append(out.Entries, toEntryJSON(e))
	}
	writeJSON(w, out)
}

// handleTailSSE streams entries as server-sent events until the client goes
// away. Query: namespace, topic, partition, start (0 = only new), limit.
func (c *LogsController) handleTailSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	q := r.URL.Query()
	partition, err := parseUint32(q.Get("partition"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid partition")
		return
	}
	start, err := parseUint64(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start")
		return
	}
	if q.Get("topic") == "" {
		writeError(w, http.StatusBadRequest, "Topic parameter is required")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	sink := sseSink{w: w}
	_ = sink.Flush()

	// headers are already sent; failures end the stream
	_ = c.svc.Tail(r.Context(), q.Get("namespace"), q.Get("topic"), partition, start, parseLimit(q.Get("limit")), sink)
}
