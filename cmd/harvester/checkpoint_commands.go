package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"harvester/internal/config"
	"harvester/internal/harvest"
	"harvester/internal/state"
)

func newCheckpointCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or move the pagination checkpoint",
	}
	cmd.AddCommand(newCheckpointGetCommand(ctx))
	cmd.AddCommand(newCheckpointSetCommand(ctx))
	return cmd
}

func newCheckpointGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print a checkpoint value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *state.Store) error {
				key := cfg.State.CheckpointKey
				if len(args) == 1 {
					key = strings.TrimSpace(args[0])
				}
				value, ok, err := store.GetCheckpoint(cmd.Context(), key)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"key": key, "value": value, "present": ok})
				}
				if !ok {
					return fmt.Errorf("checkpoint %q is not set", key)
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}
}

func newCheckpointSetCommand(ctx *commandContext) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "set <page>",
		Short: "Set the next listing page to visit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := strings.TrimSpace(args[0])
			page, err := strconv.Atoi(value)
			if err != nil || page < 1 {
				return errors.New("checkpoint must be a page number >= 1")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock, err := harvest.AcquireLock(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = lock.Unlock()
			}()

			return ctx.withStore(func(cfg *config.Config, store *state.Store) error {
				if key == "" {
					key = cfg.State.CheckpointKey
				}
				if err := store.SetCheckpoint(cmd.Context(), key, strconv.Itoa(page)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %d\n", key, page)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Checkpoint key (default state.checkpoint_key)")
	return cmd
}
