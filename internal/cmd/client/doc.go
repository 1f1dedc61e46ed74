// Package client provides the `flo` command-line client.
//
// The CLI talks to the HTTP gateway to manage transforms and to produce to
// and read from partition logs, and to the gRPC health service to check the
// server and individual processors.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. The standalone binary reads FLO_HTTP and
// defaults to http://127.0.0.1:8080. The gRPC address is read from the
// FLO_GRPC environment variable (default 127.0.0.1:50051).
//
// Usage
//
//	flo transform deploy --name enrich --source orders --sink orders-enriched \
//	    --filter 'json.total > 100' \
//	    --value '{"id": json.id, "big": true}'
//	flo transform deploy -f enrich.json
//	flo transform list
//	flo transform get enrich
//	flo transform health --name enrich --partition 0
//	flo transform delete enrich
//
//	flo log produce --topic orders --data '{"id":1,"total":250}' --header src=cli
//	cat orders.jsonl | flo log produce --topic orders
//	flo log read --topic orders-enriched --limit 10
//	flo log read --topic orders-enriched --reverse
//	flo log tail --topic orders-enriched --start 1
//	flo log stats
//
// Notes
//
//   - deploy replaces a transform of the same name; its processors resume
//     from their committed offsets.
//   - read and tail print one JSON object per entry with the value decoded
//     as value_json, value_text or value_b64.
package client
