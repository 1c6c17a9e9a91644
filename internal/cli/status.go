package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/healer/internal/core/config"
	"github.com/vietddude/healer/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue statistics and recent escalations of a running orchestrator",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	base := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	var stats map[string]int
	if err := fetchJSON(client, base+"/stats", &stats); err != nil {
		slog.Error("Failed to query orchestrator", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STATUS\tTASKS")
	for _, status := range []string{"pending", "running", "completed", "failed", "escalated"} {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", status, stats[status])
	}
	_ = w.Flush()

	var events []*domain.Event
	if err := fetchJSON(client, base+"/escalations?limit=10", &events); err != nil {
		slog.Error("Failed to query escalations", "error", err)
		os.Exit(1)
	}
	if len(events) == 0 {
		fmt.Println("\nNo recent escalations.")
		return
	}

	fmt.Println()
	ew := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(ew, "WHEN\tLEVEL\tTASK\tMESSAGE")
	for _, e := range events {
		_, _ = fmt.Fprintf(ew, "%s\t%s\t%s\t%s\n",
			e.Timestamp.Format(time.RFC3339), e.Level, e.TaskID, e.Message)
	}
	_ = ew.Flush()
}

func fetchJSON(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
