package client

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	transports "github.com/rzbill/flo-transform/internal/cmd/client/transports"
)

// NewTransformCommand constructs the `transform` command group and subcommands.
func NewTransformCommand(baseURL BaseURLFunc) *cobra.Command {
	transformCmd := &cobra.Command{Use: "transform", Short: "Transform operations"}
	transformCmd.AddCommand(
		newTransformDeployCommand(baseURL),
		newTransformListCommand(baseURL),
		newTransformGetCommand(baseURL),
		newTransformDeleteCommand(baseURL),
		newTransformHealthCommand(),
	)
	return transformCmd
}

// newTransformDeployCommand constructs the `transform deploy` subcommand.
func newTransformDeployCommand(baseURL BaseURLFunc) *cobra.Command {
	deployCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or replace a transform and start it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var t transports.Transform
			t.Name, _ = cmd.Flags().GetString("name")
			t.Namespace, _ = cmd.Flags().GetString("namespace")
			t.Source, _ = cmd.Flags().GetString("source")
			t.Sink, _ = cmd.Flags().GetString("sink")
			t.Partitions, _ = cmd.Flags().GetInt("partitions")
			t.Filter, _ = cmd.Flags().GetString("filter")
			t.Value, _ = cmd.Flags().GetString("value")
			t.MemoryLimitBytes, _ = cmd.Flags().GetInt64("memory-limit")
			t.MaxBatch, _ = cmd.Flags().GetInt("max-batch")

			if file, _ := cmd.Flags().GetString("file"); file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(b, &t); err != nil {
					return fmt.Errorf("invalid --file: %w", err)
				}
			}
			out, err := getTransport(baseURL).Deploy(cmd.Context(), t)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	deployCmd.Flags().String("name", "", "Transform name")
	deployCmd.Flags().StringP("namespace", "n", "", "Namespace (server default when empty)")
	deployCmd.Flags().String("source", "", "Source topic")
	deployCmd.Flags().String("sink", "", "Sink topic")
	deployCmd.Flags().Int("partitions", 0, "Partitions (server default when 0)")
	deployCmd.Flags().String("filter", "", "CEL filter; records where it is false are dropped")
	deployCmd.Flags().String("value", "", "CEL expression producing the output value")
	deployCmd.Flags().Int64("memory-limit", 0, "Transfer queue memory limit in bytes")
	deployCmd.Flags().Int("max-batch", 0, "Maximum records appended per sink batch")
	deployCmd.Flags().StringP("file", "f", "", "JSON definition file (overrides flags)")
	return deployCmd
}

// newTransformListCommand constructs the `transform list` subcommand.
func newTransformListCommand(baseURL BaseURLFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List transforms and their processor states",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := getTransport(baseURL).List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "NAME\tSOURCE\tSINK\tPARTITIONS\tRUNNING\tEMITTED")
			for _, st := range list {
				running := 0
				var emitted uint64
				for _, p := range st.Partitions {
					if p.State == "running" {
						running++
					}
					emitted += p.Stats.Emitted
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", st.Name, st.Source, st.Sink, st.Transform.Partitions, running, emitted)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().Bool("json", false, "Print JSON")
	return listCmd
}

// newTransformGetCommand constructs the `transform get` subcommand.
func newTransformGetCommand(baseURL BaseURLFunc) *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Show one transform with per-partition status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := getTransport(baseURL).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
	return getCmd
}

// newTransformDeleteCommand constructs the `transform delete` subcommand.
func newTransformDeleteCommand(baseURL BaseURLFunc) *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Stop a transform and remove its definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := getTransport(baseURL).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
			return nil
		},
	}
	return deleteCmd
}

// newTransformHealthCommand constructs the `transform health` subcommand. It
// asks the gRPC health service about the server or one processor.
func newTransformHealthCommand() *cobra.Command {
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check server or processor health over gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			partition, _ := cmd.Flags().GetUint32("partition")
			service := ""
			if name != "" {
				service = fmt.Sprintf("transform/%s/%d", name, partition)
			}
			return withGRPC(cmd.Context(), func(conn *grpc.ClientConn) error {
				res, err := healthpb.NewHealthClient(conn).Check(cmd.Context(), &healthpb.HealthCheckRequest{Service: service})
				if err != nil {
					return err
				}
				b, err := protojson.MarshalOptions{EmitUnpopulated: true, UseProtoNames: true}.Marshal(res)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			})
		},
	}
	healthCmd.Flags().String("name", "", "Transform name (server health when empty)")
	healthCmd.Flags().Uint32("partition", 0, "Partition of the transform")
	return healthCmd
}
