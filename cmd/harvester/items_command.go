package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"harvester/internal/config"
	"harvester/internal/crawl"
	"harvester/internal/state"
)

type itemView struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Title     string `json:"title,omitempty"`
	Page      int    `json:"page,omitempty"`
	DetailRef string `json:"detail_ref,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

func newItemsCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var limit int

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List processed items",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]state.Status, 0, len(statusFlags))
			for _, raw := range statusFlags {
				status, err := state.ParseStatus(raw)
				if err != nil {
					return err
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(_ *config.Config, store *state.Store) error {
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if limit > 0 && len(items) > limit {
					items = items[:limit]
				}
				views := make([]itemView, 0, len(items))
				for _, item := range items {
					views = append(views, newItemView(item))
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No items")
					return nil
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					page := ""
					if v.Page > 0 {
						page = fmt.Sprintf("%d", v.Page)
					}
					rows = append(rows, []string{v.ID, v.Status, page, v.Title, v.UpdatedAt})
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					headers: []string{"ID", "Status", "Page", "Title", "Updated"},
					aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (seen, ok, error; repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum items to show (0 = all)")
	return cmd
}

func newItemView(item *state.Item) itemView {
	view := itemView{
		ID:        item.ID,
		Status:    string(item.Status),
		DetailRef: item.DetailRef,
		UpdatedAt: formatTime(item.UpdatedAt),
	}
	if len(item.Ref) > 0 {
		var ref crawl.ItemRef
		if err := json.Unmarshal(item.Ref, &ref); err == nil {
			view.Title = ref.Title
			view.Page = ref.Page
		}
	}
	return view
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}
