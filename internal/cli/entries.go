package cli

import (
	"bufio"
	"fmt"
	"time"

	"github.com/dmitrijs2005/xjournal/internal/models"
	"github.com/spf13/cobra"
)

func newAddCommand(opts *RootOptions) *cobra.Command {
	var (
		title, content string
		syncAfter      bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a journal entry",
		Long: `Add a journal entry. Without --content the body is read from stdin
until an empty line. With --sync the journal is synced right after the save;
the report goes to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("content") {
				body, err := getMultiline(bufio.NewReader(opts.stdin), "Content", cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				content = body
			}

			return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *App) error {
				e, err := a.store.Save(cmd.Context(), models.JournalEntry{
					JournalID: a.cfg.Journal,
					Title:     title,
					Content:   content,
				})
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), e.ID); err != nil {
					return err
				}
				if !syncAfter {
					return nil
				}

				reports, err := a.syncNow(cmd.Context(), a.cfg.Journal)
				if err != nil {
					return err
				}
				return printReports(cmd.ErrOrStderr(), "text", reports)
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "entry title")
	cmd.Flags().StringVar(&content, "content", "", "entry body")
	cmd.Flags().BoolVar(&syncAfter, "sync", false, "sync the journal after saving")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newEditCommand(opts *RootOptions) *cobra.Command {
	var title, content string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title or body of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("title") && !flags.Changed("content") {
				return fmt.Errorf("nothing to change: pass --title or --content")
			}

			return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *App) error {
				e, err := a.store.Get(cmd.Context(), args[0], a.cfg.Journal)
				if err != nil {
					return err
				}
				if flags.Changed("title") {
					e.Title = title
				}
				if flags.Changed("content") {
					e.Content = content
				}
				_, err = a.store.Save(cmd.Context(), *e)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new body")
	return cmd
}

func newListCommand(opts *RootOptions) *cobra.Command {
	var from, to, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries of the journal, newest first",
		Long: `List entries of the journal, newest first.

--from and --to take dates (2006-01-02) and select entries created in
[from, to). --status selects entries in one sync state instead, oldest first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *App) error {
				ctx := cmd.Context()
				var (
					entries []models.JournalEntry
					err     error
				)
				switch {
				case status != "":
					st, perr := models.ParseSyncStatus(status)
					if perr != nil {
						return perr
					}
					entries, err = a.store.ListBySyncStatus(ctx, st, a.cfg.Journal)
				case from != "" || to != "":
					lo, hi, perr := parseRange(from, to)
					if perr != nil {
						return perr
					}
					entries, err = a.store.ListRange(ctx, a.cfg.Journal, lo, hi)
				default:
					entries, err = a.store.List(ctx, a.cfg.Journal)
				}
				if err != nil {
					return err
				}
				return printEntries(cmd.OutOrStdout(), opts.Format, entries)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day, exclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "sync status (NOT_SYNCED|SYNCED|SYNC_ERROR|PENDING_SYNC)")
	return cmd
}

// parseRange turns optional day bounds into [lo, hi). Open bounds span all time.
func parseRange(from, to string) (time.Time, time.Time, error) {
	lo := time.Unix(0, 0)
	hi := time.Unix(1<<62, 0)
	if from != "" {
		t, err := time.ParseInLocation(time.DateOnly, from, time.Local)
		if err != nil {
			return lo, hi, fmt.Errorf("invalid --from: %w", err)
		}
		lo = t
	}
	if to != "" {
		t, err := time.ParseInLocation(time.DateOnly, to, time.Local)
		if err != nil {
			return lo, hi, fmt.Errorf("invalid --to: %w", err)
		}
		hi = t
	}
	return lo, hi, nil
}

func newShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *App) error {
				e, err := a.store.Get(cmd.Context(), args[0], a.cfg.Journal)
				if err != nil {
					return err
				}
				return printEntry(cmd.OutOrStdout(), opts.Format, *e)
			})
		},
	}
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *App) error {
				return a.store.Delete(cmd.Context(), args[0], a.cfg.Journal)
			})
		},
	}
}
