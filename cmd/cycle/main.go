package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"SignalDesk/pkg/config"
)

var (
	configPath string
	timeout    time.Duration
	format     string
)

var rootCmd = &cobra.Command{
	Use:   "signaldesk-cycle",
	Short: "Run SignalDesk analysis and decision cycles from the command line",
	Long: `signaldesk-cycle runs the technical analyst and the portfolio manager
without the HTTP surface. Backends enabled in the config file (Kafka,
ClickHouse, Redis, LLM) are used exactly as the service would use them.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall command timeout")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "output format: table or json")

	rootCmd.AddCommand(runCmd, technicalCmd, allowedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func jsonOutput() bool {
	return strings.EqualFold(format, "json")
}

// splitTickers accepts repeated flags as well as comma separated lists.
func splitTickers(values []string) []string {
	var out []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
