package cli

import (
	"encoding/json"
	"fmt"

	"github.com/harun/apigate/pkg/gateways"
	"github.com/spf13/cobra"
)

var toolsNamesOnly bool

var toolsCmd = &cobra.Command{
	Use:       "tools <gateway>",
	Short:     "List a gateway's tools",
	Long:      `Print the gateway's tools, in declaration order, with their input schemas as JSON.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: gateways.Names(),
	RunE:      runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsNamesOnly, "names", false, "print tool names only, one per line")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	registry := rt.executor.Registry()

	if toolsNamesOnly {
		for _, name := range registry.Names() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	data, err := json.MarshalIndent(map[string]interface{}{"tools": registry.List()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tools: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
