package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/bidboard/internal/auth"
	"github.com/nhle/bidboard/internal/badge"
	"github.com/nhle/bidboard/internal/eventbus"
	"github.com/nhle/bidboard/internal/log"
	"github.com/nhle/bidboard/internal/metrics"
	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/session"
	appsync "github.com/nhle/bidboard/internal/sync"
)

func watchCmd() *cobra.Command {
	var (
		metricsAddr string
		interval    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll badge counts and log every change",
		Long: `Poll badge counts without a terminal UI. Every change is logged and
the latest counts are cached for 'bidboard inbox'. With --metrics-addr the
Prometheus metrics are served on /metrics.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			conf, err := readConfig()
			if err != nil {
				return err
			}
			if interval > 0 {
				conf.Poll.IntervalSec = int(interval / time.Second)
			}

			logger, logCloser, err := setupLogger(conf, true)
			if err != nil {
				return err
			}
			defer logCloser()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, conf, logger, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "override the configured poll interval")

	return cmd
}

func runWatch(ctx context.Context, conf *model.AppConfig, logger *slog.Logger, metricsAddr string) error {
	creds, db, err := openServices(conf)
	if err != nil {
		return err
	}
	defer log.Closer(db)

	client := newClient(conf, creds, logger)

	token, err := creds.AccessToken()
	if err != nil {
		return err
	}

	resolveCtx, cancel := context.WithTimeout(ctx, conf.RequestTimeout())
	user, err := auth.Resolve(resolveCtx, client, token, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("resolving user: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(reg)
	bus := eventbus.New(logger)

	sess := session.New(user, client, bus,
		session.WithMirror(db),
		session.WithLogger(logger))
	defer sess.Close()

	agg, err := badge.New(user.Role, client, sess,
		badge.WithLogger(logger),
		badge.WithMetrics(collector))
	if err != nil {
		return err
	}

	scheduler := appsync.New(conf.PollInterval(),
		appsync.WithLogger(logger),
		appsync.WithMetrics(collector),
		appsync.WithBus(bus))
	defer scheduler.Stop()
	scheduler.SetUser(user.ID, agg)

	slog.Info("Watching badges",
		slog.Int64("user_id", user.ID),
		slog.String("role", string(user.Role)),
		slog.Duration("interval", conf.PollInterval()))

	g, gctx := errgroup.WithContext(ctx)

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			slog.Info("Serving metrics", slog.String("addr", metricsAddr))
			if errServe := srv.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
				return fmt.Errorf("serving metrics: %w", errServe)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return watchLoop(gctx, scheduler, sess, db)
	})

	return g.Wait()
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	return mux
}

// snapshotSaver persists the counts of each successful refresh.
type snapshotSaver interface {
	SaveSnapshot(ctx context.Context, userID int64, counts model.NotificationCounts, at time.Time) error
}

// watchLoop logs badge changes until ctx is done or the session expires.
func watchLoop(ctx context.Context, scheduler *appsync.Scheduler, sess *session.Session, snapshots snapshotSaver) error {
	var previous model.NotificationCounts
	first := true

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch stopped")
			return nil

		case msg := <-scheduler.Results():
			if msg.AuthError != nil {
				return fmt.Errorf("session expired, run 'bidboard login': %w", msg.Error)
			}
			if msg.Error != nil {
				slog.Warn("Badge refresh failed", log.ErrAttr(msg.Error))
				continue
			}

			current := sess.Counts()
			for _, change := range diffCounts(previous, current, first) {
				slog.Info("Badge changed",
					slog.String("bucket", string(change.bucket)),
					slog.Int("from", change.from),
					slog.Int("to", change.to))
			}
			previous, first = current, false

			if err := snapshots.SaveSnapshot(ctx, msg.UserID, current, msg.At); err != nil {
				slog.Warn("Failed to save badge snapshot", log.ErrAttr(err))
			}
		}
	}
}

type countChange struct {
	bucket   model.Bucket
	from, to int
}

// diffCounts lists the buckets whose value differs. With all set every
// bucket is listed.
func diffCounts(before, after model.NotificationCounts, all bool) []countChange {
	var changes []countChange
	for _, b := range model.AllBuckets {
		from, to := before.Get(b), after.Get(b)
		if all || from != to {
			changes = append(changes, countChange{bucket: b, from: from, to: to})
		}
	}
	return changes
}
