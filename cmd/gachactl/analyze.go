package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Coxwtwo/gacha-ocr/pkg/analyze"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		gameID string
		from   string
		to     string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print pull statistics and pity state for a game",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cats, err := loadGame(gameID)
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			var fromT, toT time.Time
			if from != "" {
				if fromT, err = time.Parse(time.RFC3339, from); err != nil {
					return fmt.Errorf("--from must be RFC3339: %w", err)
				}
			}
			if to != "" {
				if toT, err = time.Parse(time.RFC3339, to); err != nil {
					return fmt.Errorf("--to must be RFC3339: %w", err)
				}
			}
			recs, err := store.Slice(context.Background(), gameID, fromT, toT)
			if err != nil {
				return err
			}
			report := analyze.Analyze(gameID, recs, cats, cfg.Pity)
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&gameID, "game", "", "game id (required)")
	cmd.Flags().StringVar(&from, "from", "", "window start (RFC3339)")
	cmd.Flags().StringVar(&to, "to", "", "window end (RFC3339)")
	_ = cmd.MarkFlagRequired("game")
	return cmd
}
