package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	transports "github.com/rzbill/flo-transform/internal/cmd/client/transports"
)

// NewLogCommand constructs the `log` command group: produce, read and tail.
func NewLogCommand(baseURL BaseURLFunc) *cobra.Command {
	logCmd := &cobra.Command{Use: "log", Short: "Partition log operations"}
	logCmd.AddCommand(
		newLogProduceCommand(baseURL),
		newLogReadCommand(baseURL),
		newLogTailCommand(baseURL),
		newStatsCommand(baseURL),
	)
	return logCmd
}

func addPartitionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("namespace", "n", "", "Namespace (server default when empty)")
	cmd.Flags().String("topic", "", "Topic")
	cmd.Flags().Uint32("partition", 0, "Partition")
}

func partitionFlags(cmd *cobra.Command) (ns, topic string, partition uint32, err error) {
	ns, _ = cmd.Flags().GetString("namespace")
	topic, _ = cmd.Flags().GetString("topic")
	partition, _ = cmd.Flags().GetUint32("partition")
	if topic == "" {
		err = fmt.Errorf("--topic is required")
	}
	return
}

// newLogProduceCommand constructs the `log produce` subcommand. Without
// --data every stdin line becomes one record.
func newLogProduceCommand(baseURL BaseURLFunc) *cobra.Command {
	produceCmd := &cobra.Command{
		Use:   "produce",
		Short: "Append records to a partition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, topic, partition, err := partitionFlags(cmd)
			if err != nil {
				return err
			}
			key, _ := cmd.Flags().GetString("key")
			data, _ := cmd.Flags().GetStringArray("data")
			rawHeaders, _ := cmd.Flags().GetStringArray("header")
			headersJSON, _ := cmd.Flags().GetString("header-json")
			headers, err := parseHeaders(rawHeaders, headersJSON)
			if err != nil {
				return err
			}
			if len(data) == 0 {
				if data, err = readLines(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			if len(data) == 0 {
				return fmt.Errorf("nothing to produce; pass --data or pipe lines on stdin")
			}

			recs := make([]transports.Record, len(data))
			for i, d := range data {
				recs[i] = transports.Record{Value: []byte(d), Headers: headers}
				if key != "" {
					recs[i].Key = []byte(key)
				}
			}
			offsets, err := getTransport(baseURL).Produce(cmd.Context(), ns, topic, partition, recs)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "status: OK offsets: %d-%d\n", offsets[0], offsets[len(offsets)-1])
			return nil
		},
	}
	addPartitionFlags(produceCmd)
	produceCmd.Flags().String("key", "", "Record key")
	produceCmd.Flags().StringArray("data", nil, "Record value (repeat for several records)")
	produceCmd.Flags().StringArray("header", []string{}, "Record header key=value (repeat)")
	produceCmd.Flags().String("header-json", "", "Headers as JSON object, e.g. '{\"k\":\"v\"}'")
	return produceCmd
}

func readLines(r io.Reader) ([]string, error) {
	if f, ok := r.(*os.File); ok {
		if st, err := f.Stat(); err == nil && st.Mode()&os.ModeCharDevice != 0 {
			return nil, nil
		}
	}
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		if sc.Text() != "" {
			lines = append(lines, sc.Text())
		}
	}
	return lines, sc.Err()
}

// newLogReadCommand constructs the `log read` subcommand.
func newLogReadCommand(baseURL BaseURLFunc) *cobra.Command {
	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Read a page of entries from a partition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, topic, partition, err := partitionFlags(cmd)
			if err != nil {
				return err
			}
			start, _ := cmd.Flags().GetUint64("start")
			limit, _ := cmd.Flags().GetInt("limit")
			reverse, _ := cmd.Flags().GetBool("reverse")

			res, err := getTransport(baseURL).Read(cmd.Context(), transports.ReadRequest{
				Namespace: ns,
				Topic:     topic,
				Partition: partition,
				Start:     start,
				Limit:     limit,
				Reverse:   reverse,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range res.Entries {
				_ = enc.Encode(decodedEntry(e))
			}
			if res.NextOffset != 0 {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "next: --start %d\n", res.NextOffset)
			}
			return nil
		},
	}
	addPartitionFlags(readCmd)
	readCmd.Flags().Uint64("start", 0, "Start offset (forward: first entry; reverse: entries below it, 0 = newest)")
	readCmd.Flags().Int("limit", 100, "Maximum entries")
	readCmd.Flags().Bool("reverse", false, "Read newest first")
	return readCmd
}

// newLogTailCommand constructs the `log tail` subcommand.
func newLogTailCommand(baseURL BaseURLFunc) *cobra.Command {
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow a partition as entries are appended",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, topic, partition, err := partitionFlags(cmd)
			if err != nil {
				return err
			}
			start, _ := cmd.Flags().GetUint64("start")
			limit, _ := cmd.Flags().GetInt("limit")
			enc := json.NewEncoder(cmd.OutOrStdout())
			return getTransport(baseURL).Tail(cmd.Context(), transports.TailRequest{
				Namespace: ns,
				Topic:     topic,
				Partition: partition,
				Start:     start,
				Limit:     limit,
			}, func(e transports.Entry) error {
				return enc.Encode(decodedEntry(e))
			})
		},
	}
	addPartitionFlags(tailCmd)
	tailCmd.Flags().Uint64("start", 0, "First offset to print (0 = only new entries)")
	tailCmd.Flags().Int("limit", 0, "Stop after N entries (0 = infinite)")
	return tailCmd
}

// newStatsCommand constructs the `log stats` subcommand.
func newStatsCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show storage statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := getTransport(baseURL).Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}
