package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the client.
// It registers the transform and log command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "flo",
		Short: "flo-transform client commands",
	}
	root.AddCommand(NewTransformCommand(baseURL))
	root.AddCommand(NewLogCommand(baseURL))
	return root
}
