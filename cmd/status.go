package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/zenclock/internal/models"
)

const statusTimeout = 5 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running server's timer, breathing and audio state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusRun(ctx context.Context) error {
	info, running := pidFile().IsRunning()
	if !running {
		ui.Info("No server running. Start one with 'zenclock serve start'.")
		return nil
	}

	snap, err := fetchSnapshot(ctx, info.BaseURL())
	if err != nil {
		return err
	}
	ui.Snapshot(snap)
	return nil
}

// fetchSnapshot reads the current state from a server at baseURL.
func fetchSnapshot(ctx context.Context, baseURL string) (models.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/snapshot", nil)
	if err != nil {
		return models.Snapshot{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("query server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return models.Snapshot{}, fmt.Errorf("query server: unexpected status %s", resp.Status)
	}

	var snap models.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
