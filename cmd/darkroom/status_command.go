package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"darkroom/internal/lineage"
)

type workflowStatus struct {
	WorkflowID string          `json:"workflowId"`
	Events     []lineage.Event `json:"events"`
}

func newStatusCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <workflow-id>",
		Short: "Show the recorded events of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}

			workflowID := strings.TrimSpace(args[0])
			url := fmt.Sprintf("http://%s/workflows/%s", cfg.Paths.APIBind, workflowID)

			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("query intake api: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return fmt.Errorf("workflow %s not found", workflowID)
			}
			if resp.StatusCode != http.StatusOK {
				var body map[string]string
				_ = json.NewDecoder(resp.Body).Decode(&body)
				return fmt.Errorf("intake api returned %d: %s", resp.StatusCode, body["error"])
			}

			var status workflowStatus
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return fmt.Errorf("decode status response: %w", err)
			}

			rows := make([][]string, 0, len(status.Events))
			for _, evt := range status.Events {
				rows = append(rows, []string{evt.Timestamp, evt.Type, evt.ID})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Workflow %s\n%s\n",
				status.WorkflowID,
				renderTable([]string{"Timestamp", "Event", "ID"}, rows))
			return nil
		},
	}
}
