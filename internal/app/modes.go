package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adriangarciao/offertrack/internal/deal"
	"github.com/adriangarciao/offertrack/internal/domain"
	"github.com/adriangarciao/offertrack/internal/search"
	"github.com/adriangarciao/offertrack/internal/share"
)

// statusInterval is how often sync mode logs the converged state.
const statusInterval = time.Minute

// SyncMode keeps this instance converged with every other instance sharing the
// medium until ctx is cancelled.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sync mode")

	deps.Compare.OnChange(func() {
		a.logger.InfoContext(ctx, "compare selection changed",
			slog.Any("ids", deps.Compare.IDs()),
		)
	})
	deps.Registry.OnChange(func() {
		a.logger.InfoContext(ctx, "watch registry changed",
			slog.Int("watches", len(deps.Registry.List(ctx))),
		)
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Bus.Run(ctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				// Resync catches changes whose signal was dropped.
				deps.Compare.Sync(ctx)
				deps.Registry.Sync(ctx)
				a.logger.InfoContext(ctx, "sync status",
					slog.Int("selected", len(deps.Compare.IDs())),
					slog.Int("watches", len(deps.Registry.List(ctx))),
					slog.Int("notifications", len(deps.Log.List(ctx))),
				)
			}
		}
	})

	return g.Wait()
}

// ProcessMode runs one search response through the notification engine and
// logs its deal scores.
func (a *App) ProcessMode(ctx context.Context, deps *Dependencies) error {
	if a.opts.BatchPath == "" {
		return errors.New("app: process mode requires -batch")
	}
	data, err := os.ReadFile(a.opts.BatchPath)
	if err != nil {
		return fmt.Errorf("app: read batch: %w", err)
	}
	resp, err := search.ParseResponse(data)
	if err != nil {
		return err
	}
	offers := search.Normalize(resp)

	if resp.SearchID != "" {
		err := deps.Recents.Add(ctx, domain.RecentSearch{
			SearchID:          resp.SearchID,
			Origin:            resp.Origin,
			Destination:       resp.Destination,
			EarliestDeparture: resp.EarliestDeparture,
			LatestDeparture:   resp.LatestDeparture,
			CreatedAt:         time.Now().UTC(),
		})
		if err != nil {
			a.logger.WarnContext(ctx, "failed to save recent search",
				slog.String("error", err.Error()),
			)
		}
	}

	rep, err := deps.Tracker.ProcessSearchResults(ctx, resp.Request(), offers)
	if err != nil {
		return err
	}

	for id, s := range deal.Compute(offers) {
		a.logger.DebugContext(ctx, "deal score",
			slog.String("offer_id", id),
			slog.Float64("score", s.Score),
			slog.String("label", s.Label),
			slog.String("percentile", s.PercentileText),
		)
	}

	a.logger.InfoContext(ctx, "batch processed",
		slog.String("search_id", resp.SearchID),
		slog.Int("offers", len(offers)),
		slog.Int("checked", len(rep.Updated)),
		slog.Int("alerts", len(rep.Recorded)),
	)
	return nil
}

// ExportMode prints a share token for the compare selection and, when a
// bucket is configured, uploads JSON and CSV exports.
func (a *App) ExportMode(ctx context.Context, deps *Dependencies) error {
	offers := deps.Compare.List()
	token, err := share.Encode(offers, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, token)
	fmt.Fprintln(os.Stdout, share.SummaryText(offers))

	if deps.Exporter == nil {
		a.logger.InfoContext(ctx, "share token created", slog.Int("offers", len(offers)))
		return nil
	}

	notifications := deps.Log.List(ctx)
	paths := make([]string, 3)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		paths[0], err = deps.Exporter.ExportJSON(gctx, "compare", share.Payload{
			V:         share.Version,
			CreatedAt: time.Now().UTC(),
			Offers:    offers,
		})
		return err
	})
	g.Go(func() (err error) {
		paths[1], err = deps.Exporter.ExportCSV(gctx, "compare", share.OfferRows(offers), share.OfferColumns)
		return err
	})
	g.Go(func() (err error) {
		paths[2], err = deps.Exporter.ExportCSV(gctx, "notifications", share.NotificationRows(notifications), share.NotificationColumns)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("app: export: %w", err)
	}

	a.logger.InfoContext(ctx, "exports uploaded",
		slog.Int("offers", len(offers)),
		slog.Int("notifications", len(notifications)),
		slog.Any("paths", paths),
	)
	return nil
}

// ImportMode decodes a share token and merges its offers into the compare
// selection.
func (a *App) ImportMode(ctx context.Context, deps *Dependencies) error {
	if a.opts.Token == "" {
		return errors.New("app: import mode requires -token")
	}
	p, err := deps.Decoder.Decode(a.opts.Token)
	if err != nil {
		return fmt.Errorf("app: decode share token: %w", err)
	}
	added, err := deps.Compare.Import(ctx, p.Offers)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "share token imported",
		slog.Int("offers", len(p.Offers)),
		slog.Int("added", added),
		slog.Any("ids", deps.Compare.IDs()),
	)
	return nil
}
