package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"harvester/internal/config"
	"harvester/internal/state"
)

type statusView struct {
	DBPath      string             `json:"db_path"`
	Counts      map[string]int     `json:"counts"`
	Total       int                `json:"total"`
	Checkpoints []state.Checkpoint `json:"checkpoints"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show item counts and checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *state.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				checkpoints, err := store.Checkpoints(cmd.Context())
				if err != nil {
					return err
				}

				view := statusView{DBPath: store.Path(), Counts: map[string]int{}, Checkpoints: checkpoints}
				for _, status := range state.AllStatuses() {
					view.Counts[string(status)] = stats[status]
					view.Total += stats[status]
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, view)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Harvester", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, view.DBPath, colorize))
				fmt.Fprintln(out, renderStatusLine("Items", statusInfo, strconv.Itoa(view.Total), colorize))
				fmt.Fprintln(out, renderStatusLine("Settled ok", statusOK, strconv.Itoa(view.Counts[string(state.StatusOK)]), colorize))

				pending := view.Counts[string(state.StatusSeen)]
				pendingKind := statusOK
				if pending > 0 {
					pendingKind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Pending", pendingKind, strconv.Itoa(pending), colorize))

				failed := view.Counts[string(state.StatusError)]
				failedKind := statusOK
				if failed > 0 {
					failedKind = statusError
				}
				fmt.Fprintln(out, renderStatusLine("Failed", failedKind, strconv.Itoa(failed), colorize))

				if len(checkpoints) == 0 {
					fmt.Fprintln(out, renderStatusLine("Checkpoint", statusInfo,
						fmt.Sprintf("none (starts at page %d)", cfg.Crawl.StartPage), colorize))
					return nil
				}
				rows := make([][]string, 0, len(checkpoints))
				for _, cp := range checkpoints {
					rows = append(rows, []string{cp.Key, cp.Value, formatTime(cp.UpdatedAt)})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(tableSpec{
					title:   "Checkpoints",
					headers: []string{"Key", "Value", "Updated"},
					aligns:  []columnAlignment{alignLeft, alignRight, alignLeft},
				}, rows))
				return nil
			})
		},
	}
}
