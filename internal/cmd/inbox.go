package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nhle/bidboard/internal/auth"
	"github.com/nhle/bidboard/internal/log"
	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/store"
)

func inboxCmd() *cobra.Command {
	var unreadOnly bool

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Print the locally cached notifications",
		Long: `Print the notifications and badge counts cached by the last refresh.
Works offline; the user is taken from the stored token.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := readConfig()
			if err != nil {
				return err
			}

			creds, db, err := openServices(conf)
			if err != nil {
				return err
			}
			defer log.Closer(db)

			token, err := creds.AccessToken()
			if err != nil {
				return err
			}
			claims, err := auth.ParseClaims(token)
			if err != nil {
				return err
			}

			return printInbox(cmd.Context(), cmd.OutOrStdout(), db, claims.UserID, unreadOnly, time.Now())
		},
	}

	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "only show unread notifications")

	return cmd
}

// printInbox writes the cached badges and notifications of userID to w.
func printInbox(ctx context.Context, w io.Writer, s store.Store, userID int64, unreadOnly bool, now time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}

	counts, at, err := s.LastSnapshot(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintln(w, "No badge counts cached yet. Run 'bidboard watch' or open the dashboard.")
	case err != nil:
		return err
	default:
		fmt.Fprintf(w, "Badges (%s):\n", humanize.RelTime(at, now, "ago", "from now"))
		for _, b := range model.AllBuckets {
			fmt.Fprintf(w, "  %-15s %s\n", b, humanize.Comma(int64(counts.Get(b))))
		}
	}

	list, err := s.GetNotifications(ctx, userID)
	if err != nil {
		return err
	}

	shown := 0
	for _, n := range list {
		if unreadOnly && n.IsRead {
			continue
		}
		if shown == 0 {
			fmt.Fprintln(w, "\nNotifications:")
		}
		shown++

		marker := " "
		if !n.IsRead {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-16s %s (%s)\n", marker, n.Type, n.Title,
			humanize.RelTime(n.CreatedAt, now, "ago", "from now"))
	}
	if shown == 0 {
		fmt.Fprintln(w, "\nNo notifications.")
	}
	return nil
}
