package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	statusAddr    string
	statusTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check a running HTTP or websocket gateway",
	Long:  `Query the /healthz endpoint of a gateway served with --transport http or ws.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "gateway address (default from config)")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 3*time.Second, "request timeout")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr := statusAddr
	if addr == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		addr = cfg.Server.Addr
	}

	url := addr
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	url = strings.TrimSuffix(url, "/") + "/healthz"

	client := &http.Client{Timeout: statusTimeout}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Status: stopped")
		return fmt.Errorf("gateway not reachable at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	var health map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil || resp.StatusCode != http.StatusOK {
		fmt.Fprintln(cmd.OutOrStdout(), "Status: unhealthy")
		return fmt.Errorf("gateway at %s answered %d", addr, resp.StatusCode)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Status: running")
	fmt.Fprintf(out, "Address: %s\n", addr)
	if server, ok := health["server"].(string); ok {
		fmt.Fprintf(out, "Server: %s\n", server)
	}
	if tools, ok := health["tools"].(float64); ok {
		fmt.Fprintf(out, "Tools: %d\n", int(tools))
	}
	return nil
}
