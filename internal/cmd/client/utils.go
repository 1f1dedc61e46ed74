package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	transports "github.com/rzbill/flo-transform/internal/cmd/client/transports"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

func getTransport(baseURL BaseURLFunc) transports.AdminTransport {
	return transports.NewHTTPTransport(baseURL, nil)
}

// grpcAddrFromEnv returns the gRPC server address from FLO_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("FLO_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:50051"
}

// withGRPC dials the gRPC endpoint with insecure transport for local/dev and
// closes the connection after fn.
func withGRPC(_ context.Context, fn func(*grpc.ClientConn) error) error {
	conn, err := grpc.NewClient(grpcAddrFromEnv(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return fn(conn)
}

// decodedEntry returns a map with the offset and one of value_json,
// value_text, or value_b64.
func decodedEntry(e transports.Entry) map[string]any {
	out := map[string]any{"offset": e.Offset, "ts_ms": e.TimestampMs}
	if len(e.Key) > 0 {
		out["key"] = string(e.Key)
	}
	if len(e.Headers) > 0 {
		out["headers"] = e.Headers
	}
	payload := e.Value
	// Try JSON first if it looks like JSON
	if len(payload) > 0 && (payload[0] == '{' || payload[0] == '[') {
		var v any
		if json.Unmarshal(payload, &v) == nil {
			out["value_json"] = v
			return out
		}
	}
	if utf8.Valid(payload) {
		out["value_text"] = string(payload)
		return out
	}
	out["value_b64"] = base64.StdEncoding.EncodeToString(payload)
	return out
}

// parseHeaders merges repeated key=value flags with a JSON object.
func parseHeaders(raw []string, headersJSON string) (map[string]string, error) {
	headers := map[string]string{}
	for _, hv := range raw {
		if hv == "" {
			continue
		}
		k, v, ok := strings.Cut(hv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --header, expected key=value: %s", hv)
		}
		headers[strings.TrimSpace(k)] = v
	}
	if headersJSON != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(headersJSON), &m); err != nil {
			return nil, fmt.Errorf("invalid --header-json: %w", err)
		}
		for k, v := range m {
			headers[k] = v
		}
	}
	return headers, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
