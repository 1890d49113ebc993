package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AtharvRaotole/reel-picks/internal/config"
	"github.com/AtharvRaotole/reel-picks/internal/events"
	"github.com/AtharvRaotole/reel-picks/internal/favorites"
	"github.com/AtharvRaotole/reel-picks/internal/models"
	"github.com/AtharvRaotole/reel-picks/internal/reminders"
	"github.com/AtharvRaotole/reel-picks/internal/storage"
	"github.com/AtharvRaotole/reel-picks/internal/utils"
)

func newFavoritesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Inspect saved favorites",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print favorites with their rating and notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(func(backend storage.Backend, bus *events.Bus) error {
				store := favorites.NewStore(backend, bus, utils.QuietLogger())
				defer store.Close()
				return printFavorites(cmd.OutOrStdout(), store.All())
			})
		},
	})
	return cmd
}

func newRemindersCommand() *cobra.Command {
	var upcomingOnly bool
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Inspect scheduled watch reminders",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "Print reminders, soonest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(func(backend storage.Backend, bus *events.Bus) error {
				store := reminders.NewStore(backend, bus, utils.QuietLogger())
				defer store.Close()
				items := store.Upcoming()
				if !upcomingOnly {
					items = store.All()
				}
				return printReminders(cmd.OutOrStdout(), items, time.Now())
			})
		},
	}
	list.Flags().BoolVar(&upcomingOnly, "upcoming", false, "only show reminders that have not fired yet")
	cmd.AddCommand(list)
	return cmd
}

// withBackend opens the configured storage area for the duration of fn.
func withBackend(fn func(storage.Backend, *events.Bus) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	backend, err := storage.OpenBolt(cfg.DatabaseFile, cfg.StorageQuotaBytes)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer backend.Close()

	bus := events.NewBus(utils.QuietLogger())
	defer bus.Close()
	return fn(backend, bus)
}

func printFavorites(out io.Writer, items []models.FavoriteEntry) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "No favorites yet.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tRATING\tADDED\tNOTES")
	for _, e := range items {
		notes := ""
		if e.Notes != nil {
			notes = *e.Notes
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Movie.ID, e.Movie.Title, stars(e.Rating), e.DateAdded.Format("2006-01-02"), notes)
	}
	return tw.Flush()
}

func printReminders(out io.Writer, items []models.Reminder, now time.Time) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "No reminders scheduled.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAT\tRELATIVE")
	for _, r := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.MovieID, r.MovieTitle, r.ReminderTime.Local().Format("Mon Jan 2 15:04"), reminders.FormatRelative(r.ReminderTime, now))
	}
	return tw.Flush()
}

func stars(rating int) string {
	return strings.Repeat("*", rating) + strings.Repeat(".", models.MaxRating-rating)
}
