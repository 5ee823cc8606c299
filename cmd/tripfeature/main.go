package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripfeature/tripfeature/internal/api"
	"github.com/tripfeature/tripfeature/internal/config"
	"github.com/tripfeature/tripfeature/internal/feature"
	"github.com/tripfeature/tripfeature/internal/metrics"
	"github.com/tripfeature/tripfeature/internal/runlog"
	"github.com/tripfeature/tripfeature/internal/runner"
	"github.com/tripfeature/tripfeature/internal/table"
)

// runHistory is how many completed runs the watch-mode status API retains.
const runHistory = 50

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	input := flag.String("input", "", "input CSV (overrides pipeline.input)")
	output := flag.String("output", "", "output CSV or directory (overrides pipeline.output)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("tripfeature starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.Pipeline.Input = *input
	}
	if *output != "" {
		cfg.Pipeline.Output = *output
	}

	slog.Info("config loaded",
		"windows", cfg.Windows.Count,
		"gap", cfg.Windows.Gap,
		"targets", cfg.Windows.Targets,
		"group_by", cfg.Windows.GroupBy,
		"derive_features", cfg.Features.Enabled,
		"watch", cfg.Watch.Enabled,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Watch.Enabled {
		if err := watchLoop(ctx, *configPath, cfg); err != nil {
			slog.Error("watch loop failed", "err", err)
			os.Exit(1)
		}
		slog.Info("tripfeature shutting down")
		return
	}

	if cfg.Pipeline.Input == "" {
		slog.Error("no input file: set pipeline.input or -input")
		os.Exit(1)
	}
	out := cfg.Pipeline.Output
	if out == "" {
		out = derivedName(cfg.Pipeline.Input, ".")
	}
	stats, err := processFile(ctx, cfg, cfg.Pipeline.Input, out)
	if err != nil {
		slog.Error("run failed", "input", cfg.Pipeline.Input, "err", err)
		os.Exit(1)
	}
	slog.Info("run complete",
		"input", cfg.Pipeline.Input,
		"output", out,
		"rows_in", stats.RowsIn,
		"rows_out", stats.RowsOut,
		"groups", stats.Groups,
		"first_day_cut", stats.FirstDayCut,
	)
}

// processFile runs the full pipeline on one CSV: read, optional feature
// derivation, grouped window aggregation, write.
func processFile(ctx context.Context, cfg *config.Config, inPath, outPath string) (runner.Stats, error) {
	t, err := table.ReadCSV(inPath)
	if err != nil {
		return runner.Stats{}, err
	}
	slog.Info("input loaded", "path", inPath, "rows", t.Len(), "columns", len(t.Header))

	if cfg.Features.Enabled {
		t, err = feature.Derive(t, feature.Options{
			Cells:            cfg.Features.Cells,
			LightInterval:    cfg.Features.LightInterval,
			ODInterval:       cfg.Features.ODInterval,
			MinDistance:      cfg.Features.MinDistance,
			DistanceInterval: cfg.Features.DistanceInterval,
			DaySteps:         cfg.Features.DaySteps,
		})
		if err != nil {
			return runner.Stats{}, err
		}
		slog.Info("features derived", "rows", t.Len(), "columns", len(t.Header))
	}

	out, stats, err := runner.Run(ctx, t, runner.Options{
		GroupBy:         cfg.Windows.GroupBy,
		Targets:         cfg.Windows.Targets,
		TimeColumn:      cfg.Windows.TimeColumn,
		DateColumn:      cfg.Windows.DateColumn,
		Windows:         cfg.Windows.Count,
		Gap:             cfg.Windows.Gap,
		BacktrackPeriod: cfg.Windows.BacktrackPeriod,
		MaxBacktracks:   cfg.Windows.MaxBacktracks,
		DropFirstDay:    cfg.Windows.DropFirstDay,
		Workers:         cfg.Pipeline.Workers,
	})
	if err != nil {
		return runner.Stats{}, err
	}
	if err := out.WriteCSV(outPath); err != nil {
		return runner.Stats{}, err
	}
	return stats, nil
}

// watchLoop processes every CSV dropped into the watched directory until
// ctx is cancelled, serving the status API and metrics alongside.
func watchLoop(ctx context.Context, configPath string, initial *config.Config) error {
	// Config hot-reload: validated configs swap in for the next run.
	store := config.NewStore(initial)
	go func() {
		if err := store.Watch(ctx, configPath); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	log := runlog.New(runHistory)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", api.New(log))
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", initial.Watch.HTTPPort),
		Handler: mux,
	}
	go func() {
		slog.Info("status API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("status API failed", "err", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(initial.Watch.Dir); err != nil {
		return err
	}
	slog.Info("watching for vehicle data", "dir", initial.Watch.Dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// A file moved atomically into the directory arrives as a
			// single Create. Writers that stream rows in place should
			// write elsewhere and rename in.
			if !event.Has(fsnotify.Create) {
				continue
			}
			if strings.ToLower(filepath.Ext(event.Name)) != ".csv" {
				continue
			}
			c := store.Current()
			outPath := derivedName(event.Name, c.Pipeline.Output)
			started := time.Now()
			stats, err := processFile(ctx, c, event.Name, outPath)
			dur := time.Since(started)
			metrics.ObserveRun(stats.RowsIn, stats.RowsOut, stats.Groups, dur, err)
			run := runlog.Run{
				Input:    event.Name,
				RowsIn:   stats.RowsIn,
				RowsOut:  stats.RowsOut,
				Groups:   stats.Groups,
				Duration: dur,
				Started:  started,
			}
			if err != nil {
				run.Error = err.Error()
				slog.Error("run failed", "input", event.Name, "err", err)
			} else {
				run.Output = outPath
				slog.Info("run complete",
					"input", event.Name,
					"output", outPath,
					"rows_out", stats.RowsOut,
					"groups", stats.Groups,
					"duration", dur,
				)
			}
			log.Add(run)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("directory watcher error", "err", err)
		}
	}
}

// derivedName places the annotated table for input next to dir, named
// <input-stem>_features.csv.
func derivedName(input, dir string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+"_features.csv")
}
