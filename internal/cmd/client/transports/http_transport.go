// Package transports provides pluggable transport implementations for the CLI.
package transports

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// HTTPTransport implements AdminTransport over the REST gateway.
type HTTPTransport struct {
	baseURL func() string
	client  *http.Client
}

// NewHTTPTransport constructs a transport resolving the base URL on each call.
func NewHTTPTransport(baseURL func() string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{baseURL: baseURL, client: client}
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http error: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("http error: %d %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := strings.TrimRight(t.baseURL(), "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return decodeStatusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeStatusError(resp *http.Response) error {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&e)
	return &StatusError{Code: resp.StatusCode, Message: e.Error}
}

// Deploy stores and starts a transform.
func (t *HTTPTransport) Deploy(ctx context.Context, tr Transform) (Transform, error) {
	var out Transform
	err := t.do(ctx, http.MethodPost, "/v1/transforms/deploy", nil, tr, &out)
	return out, err
}

// List returns every stored transform with its status.
func (t *HTTPTransport) List(ctx context.Context) ([]TransformStatus, error) {
	var out struct {
		Transforms []TransformStatus `json:"transforms"`
	}
	err := t.do(ctx, http.MethodGet, "/v1/transforms", nil, nil, &out)
	return out.Transforms, err
}

// Get returns one transform with its status.
func (t *HTTPTransport) Get(ctx context.Context, name string) (TransformStatus, error) {
	var out TransformStatus
	err := t.do(ctx, http.MethodGet, "/v1/transforms/get", url.Values{"name": {name}}, nil, &out)
	return out, err
}

// Delete stops and removes a transform.
func (t *HTTPTransport) Delete(ctx context.Context, name string) error {
	return t.do(ctx, http.MethodPost, "/v1/transforms/delete", nil, map[string]string{"name": name}, nil)
}

// Produce appends records to one partition and returns their offsets.
func (t *HTTPTransport) Produce(ctx context.Context, ns, topic string, partition uint32, recs []Record) ([]uint64, error) {
	in := struct {
		Namespace string   `json:"namespace,omitempty"`
		Topic     string   `json:"topic"`
		Partition uint32   `json:"partition"`
		Records   []Record `json:"records"`
	}{ns, topic, partition, recs}
	var out struct {
		Offsets []uint64 `json:"offsets"`
	}
	err := t.do(ctx, http.MethodPost, "/v1/logs/produce", nil, in, &out)
	return out.Offsets, err
}

func logQuery(ns, topic string, partition uint32, start uint64, limit int) url.Values {
	q := url.Values{"topic": {topic}, "partition": {strconv.FormatUint(uint64(partition), 10)}}
	if ns != "" {
		q.Set("namespace", ns)
	}
	if start > 0 {
		q.Set("start", strconv.FormatUint(start, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// Read returns one page of a partition.
func (t *HTTPTransport) Read(ctx context.Context, req ReadRequest) (ReadResult, error) {
	q := logQuery(req.Namespace, req.Topic, req.Partition, req.Start, req.Limit)
	if req.Reverse {
		q.Set("reverse", "true")
	}
	var out ReadResult
	err := t.do(ctx, http.MethodGet, "/v1/logs/read", q, nil, &out)
	return out, err
}

// Tail follows the SSE tail endpoint and calls onEntry per event until the
// server ends the stream, ctx is done or onEntry fails.
func (t *HTTPTransport) Tail(ctx context.Context, req TailRequest, onEntry func(Entry) error) error {
	u := strings.TrimRight(t.baseURL(), "/") + "/v1/logs/tail?" +
		logQuery(req.Namespace, req.Topic, req.Partition, req.Start, req.Limit).Encode()
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	hreq.Header.Set("Accept", "text/event-stream")
	resp, err := t.client.Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return decodeStatusError(resp)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return fmt.Errorf("tail: bad event: %w", err)
		}
		if err := onEntry(e); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Stats returns server storage statistics.
func (t *HTTPTransport) Stats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := t.do(ctx, http.MethodGet, "/v1/stats", nil, nil, &out)
	return out, err
}
