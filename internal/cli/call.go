package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var callArgs string

// ErrToolFailed is returned after a failure envelope has been printed.
var ErrToolFailed = errors.New("tool call failed")

var callCmd = &cobra.Command{
	Use:   "call <gateway> <tool>",
	Short: "Run one tool call and print its envelope",
	Long: `Run a single tool call through the same dispatcher the servers use and
print the response envelope. The exit status is 1 when the envelope is a
failure.

Example:
  apigate call ghl ghl_get_pipelines
  apigate call meta meta_get_insights --args '{"date_preset":"last_7d"}'`,
	Args: cobra.ExactArgs(2),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callArgs, "args", "{}", "tool arguments as a JSON object")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	if !json.Valid([]byte(callArgs)) {
		return fmt.Errorf("--args is not valid JSON")
	}

	rt, err := newRuntime(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer rt.Close()

	env := rt.executor.ExecuteJSON(cmd.Context(), args[1], json.RawMessage(callArgs))
	fmt.Fprintln(cmd.OutOrStdout(), env.Text())

	if env.IsError() {
		return fmt.Errorf("%w: %s", ErrToolFailed, env.Kind)
	}
	return nil
}
