package main

import (
	"context"
	"fmt"
	"os/user"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Inspect and resolve records flagged for manual review",
	}
	cmd.AddCommand(newReviewListCmd())
	cmd.AddCommand(newReviewConfirmCmd())
	cmd.AddCommand(newReviewRejectCmd())
	return cmd
}

func cliActor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "cli:" + u.Username
	}
	return "cli"
}

func newReviewListCmd() *cobra.Command {
	var gameID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records waiting for review, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			recs, err := store.Pending(context.Background(), gameID)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("review queue is empty")
				return nil
			}
			for _, r := range recs {
				fmt.Printf("#%d  time=%q item=%q banner=%q conf=%.2f\n",
					r.ID, r.RawTime, r.RawItem, r.RawBanner, r.Confidence)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&gameID, "game", "", "game id (required)")
	_ = cmd.MarkFlagRequired("game")
	return cmd
}

func newReviewConfirmCmd() *cobra.Command {
	var (
		itemID   string
		bannerID string
		drawTime string
	)
	cmd := &cobra.Command{
		Use:   "confirm <record-id>",
		Short: "Correct a flagged record and promote it into the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("record id must be a number: %q", args[0])
			}
			var t time.Time
			if drawTime != "" {
				if t, err = time.Parse(time.RFC3339, drawTime); err != nil {
					return fmt.Errorf("--time must be RFC3339: %w", err)
				}
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			rec, inserted, err := store.Confirm(context.Background(), uint(id), itemID, bannerID, t, cliActor())
			if err != nil {
				return err
			}
			if inserted {
				fmt.Printf("record #%d confirmed: %s / %s at %s\n", rec.ID, rec.ItemID, rec.BannerID, rec.DrawTime.Format(time.RFC3339))
			} else {
				fmt.Printf("record #%d was a duplicate of an existing ledger entry and was absorbed\n", rec.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&itemID, "item", "", "corrected item id")
	cmd.Flags().StringVar(&bannerID, "banner", "", "corrected banner id")
	cmd.Flags().StringVar(&drawTime, "time", "", "corrected draw time (RFC3339)")
	return cmd
}

func newReviewRejectCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reject <record-id>",
		Short: "Permanently exclude a flagged record from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("record id must be a number: %q", args[0])
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.Reject(context.Background(), uint(id), cliActor(), reason); err != nil {
				return err
			}
			fmt.Printf("record #%d rejected\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the record is being discarded")
	return cmd
}
