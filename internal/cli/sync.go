package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/xjournal/internal/models"
	"github.com/dmitrijs2005/xjournal/internal/netgate"
	"github.com/dmitrijs2005/xjournal/internal/syncengine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newSyncCommand(opts *RootOptions) *cobra.Command {
	var journals []string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upload unsynchronized entries to the remote",
		Long: `Upload unsynchronized entries to the configured remote.

Each entry is tried up to the configured number of attempts; entries that
still fail are marked SYNC_ERROR. When the remote is unreachable, entries
are left untouched and reported as deferred.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *App) error {
				ctx := cmd.Context()
				if len(journals) == 0 {
					journals = []string{a.cfg.Journal}
				}

				reports, err := a.syncNow(ctx, journals...)
				if err != nil {
					return err
				}
				return printReports(cmd.OutOrStdout(), opts.Format, reports)
			})
		},
	}

	cmd.Flags().StringSliceVar(&journals, "journals", nil, "journals to sync concurrently (default: --journal)")
	return cmd
}

func newWatchCommand(opts *RootOptions) *cobra.Command {
	var (
		withSync    bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the journal summary whenever it changes",
		Long: `Subscribe to the journal and print a summary line on every change
until interrupted. With --sync the journal is also synced in the background
every sync interval while the remote is reachable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *App) error {
				ctx, cancel := context.WithCancel(cmd.Context())
				defer cancel()

				if withSync {
					done, err := startBackgroundSync(ctx, a, metricsAddr)
					if err != nil {
						return err
					}
					defer func() {
						cancel()
						<-done
					}()
				}

				sub, err := a.store.Subscribe(ctx, a.cfg.Journal)
				if err != nil {
					return err
				}
				defer sub.Close()

				for snap := range sub.C() {
					if snap.Err != nil {
						a.logger.Error(ctx, "journal unreadable", "journal", a.cfg.Journal, "error", snap.Err)
						continue
					}
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), summarize(a.cfg.Journal, snap.Entries)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&withSync, "sync", false, "sync in the background")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (with --sync)")
	return cmd
}

// syncNow runs one pass over journalIDs once the gate is up or the probe
// timeout has passed.
func (a *App) syncNow(ctx context.Context, journalIDs ...string) ([]syncengine.Report, error) {
	gate := a.newGate()
	defer gate.Disable()
	eng, err := a.newEngine(ctx, gate, syncengine.NewMetrics())
	if err != nil {
		return nil, err
	}

	a.awaitGate(ctx, gate)
	return eng.SyncJournals(ctx, journalIDs...)
}

// awaitGate requests the gate and waits up to the probe timeout for it.
func (a *App) awaitGate(ctx context.Context, gate *netgate.Gate) {
	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.Remote.ProbeTimeout)
	defer cancel()

	gate.RequestEnable(ctx, nil)
	if err := gate.WaitEnabled(waitCtx); err != nil && ctx.Err() == nil {
		a.logger.Warn(ctx, "remote unreachable, entries will be deferred")
	}
}

// startBackgroundSync syncs the journal every sync interval until ctx is
// done. The returned channel is closed when the loop has stopped.
func startBackgroundSync(ctx context.Context, a *App, metricsAddr string) (<-chan struct{}, error) {
	m := syncengine.NewMetrics()
	gate := a.newGate()
	eng, err := a.newEngine(ctx, gate, m)
	if err != nil {
		return nil, err
	}

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(m.Collectors()...)
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error(ctx, "metrics server failed", "error", err)
			}
		}()
		context.AfterFunc(ctx, func() { _ = srv.Close() })
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer gate.Disable()
		// the first pass runs as soon as the gate is up, not one interval later
		a.awaitGate(ctx, gate)
		eng.Run(ctx, a.cfg.Sync.Interval, a.cfg.Journal)
	}()
	return done, nil
}

func summarize(journalID string, entries []models.JournalEntry) string {
	counts := map[models.SyncStatus]int{}
	for _, e := range entries {
		counts[e.SyncStatus]++
	}
	return fmt.Sprintf("%s: %d entries, %d synced, %d pending, %d failed",
		journalID, len(entries),
		counts[models.StatusSynced],
		counts[models.StatusNotSynced]+counts[models.StatusPendingSync],
		counts[models.StatusSyncError])
}
