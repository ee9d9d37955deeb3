package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Coxwtwo/gacha-ocr/pkg/batch"
	"github.com/Coxwtwo/gacha-ocr/pkg/ocr"
)

func newProcessCmd() *cobra.Command {
	var (
		gameID   string
		dir      string
		watch    bool
		workers  int
		rescan   string
		language string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "OCR a directory of screenshots into the draw ledger",
		Example: `  # one-shot batch run
  gachactl process --game wuthering_waves --dir ./inbox

  # keep watching the directory, rescanning hourly
  gachactl process --game wuthering_waves --dir ./inbox --watch --rescan "0 * * * *"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cats, err := loadGame(gameID)
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			pipe := batch.NewPipeline(cfg, cats, ocr.NewTesseract(language))
			runner := batch.NewRunner(pipe, store, workers)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				w := batch.NewWatcher(runner, dir, rescan)
				return w.Watch(ctx)
			}

			paths := batch.ListImages(dir)
			if len(paths) == 0 {
				return fmt.Errorf("no images found in %s", dir)
			}
			sum, err := runner.Run(ctx, paths)
			if err != nil {
				return err
			}
			fmt.Printf("batch %s: processed=%d confirmed=%d needs_review=%d absorbed=%d failed=%d cancelled=%d\n",
				sum.BatchID, sum.Processed, sum.Confirmed, sum.NeedsReview, sum.Absorbed, sum.Failed, sum.Cancelled)
			return nil
		},
	}

	cmd.Flags().StringVar(&gameID, "game", "", "game id (required)")
	cmd.Flags().StringVar(&dir, "dir", "", "directory of screenshots (required)")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep watching the directory for new screenshots")
	cmd.Flags().IntVar(&workers, "workers", 0, "OCR worker count (default: number of CPUs)")
	cmd.Flags().StringVar(&rescan, "rescan", "", "cron spec for periodic full rescans while watching")
	cmd.Flags().StringVar(&language, "lang", "chi_sim+eng", "tesseract language pack")
	_ = cmd.MarkFlagRequired("game")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}
