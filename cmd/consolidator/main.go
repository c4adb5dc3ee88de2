// Copyright 2025 SAP SE
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/cobaltcore-dev/consolidator/internal/conf"
	"github.com/cobaltcore-dev/consolidator/internal/consolidation"
	"github.com/cobaltcore-dev/consolidator/internal/consolidation/plugins/overload"
	"github.com/cobaltcore-dev/consolidator/internal/consolidation/plugins/selection"
	"github.com/cobaltcore-dev/consolidator/internal/db"
	"github.com/cobaltcore-dev/consolidator/internal/fleet"
	"github.com/cobaltcore-dev/consolidator/internal/fleet/power"
	"github.com/cobaltcore-dev/consolidator/internal/history"
	"github.com/cobaltcore-dev/consolidator/internal/keystone"
	"github.com/cobaltcore-dev/consolidator/internal/monitoring"
	"github.com/cobaltcore-dev/consolidator/internal/openstack"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sapcc/go-api-declarations/bininfo"
	"github.com/sapcc/go-bits/httpext"
	"github.com/sapcc/go-bits/jobloop"
	"go.uber.org/automaxprocs/maxprocs"
)

const usage = `
  modes:
  -consolidate   Run the consolidation loop against a local fleet view, which starts with no hosts.
  -consolidate-openstack   Run the consolidation loop against a live OpenStack Nova deployment.
`

func runMonitoringServer(ctx context.Context, registry *monitoring.Registry, config conf.MonitoringConfig) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	slog.Info("metrics listening", "port", config.Port)
	addr := fmt.Sprintf(":%d", config.Port)
	if err := httpext.ListenAndServeContext(ctx, addr, mux); err != nil {
		panic(err)
	}
}

func newOverloadPredicate(c conf.PolicyConfig) consolidation.Predicate {
	switch c.Name {
	case "mad":
		var opts overload.MAD
		opts.SafetyParameter = 1.0
		opts.MinHistorySamples = 10
		opts.FallbackThreshold = 0.9
		_ = c.Options.Decode(&opts)
		return opts
	case "iqr":
		var opts overload.IQR
		opts.SafetyParameter = 1.5
		opts.MinHistorySamples = 10
		opts.FallbackThreshold = 0.9
		_ = c.Options.Decode(&opts)
		return opts
	default:
		opts := overload.Static{Threshold: 0.8}
		_ = c.Options.Decode(&opts)
		return opts
	}
}

func newVmSelector(c conf.PolicyConfig, weights consolidation.Weights) consolidation.VmSelector {
	switch c.Name {
	case "min_migration_time":
		return selection.MinimumMigrationTime{}
	case "random":
		return selection.NewRandom(rand.NewPCG(1, 2))
	case "io_weighted":
		return selection.IOWeighted{WMips: weights.WMips, WIops: weights.WIops}
	default:
		return selection.MaximumCorrelation{}
	}
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		panic(usage)
	}

	bininfo.HandleVersionArgument()

	config := conf.GetConfigOrDie[*conf.SharedConfig]()
	if err := config.Validate(); err != nil {
		panic(err)
	}
	config.LoggingConfig.SetDefaultLogger()

	undoMaxprocs, err := maxprocs.Set(maxprocs.Logger(slog.Debug))
	if err != nil {
		panic(err)
	}
	defer undoMaxprocs()

	wrap := httpext.WrapTransport(&http.DefaultTransport)
	wrap.SetOverrideUserAgent(bininfo.Component(), bininfo.VersionOr("rolling"))

	ctx := httpext.ContextWithSIGINT(context.Background(), 10*time.Second)

	taskName := args[0]
	bininfo.SetTaskName(taskName)

	registry := monitoring.NewRegistry(config.MonitoringConfig)

	var database *db.DB
	if config.DBConfig.Driver == "sqlite3" {
		database, err = db.NewSQLiteDB(config.DBConfig.Database, registry.Registry)
	} else {
		database, err = db.NewPostgresDB(config.DBConfig, registry.Registry)
	}
	if err != nil {
		panic(err)
	}
	defer database.Close()
	go database.CheckLivenessPeriodically(ctx)
	go runMonitoringServer(ctx, registry, config.MonitoringConfig)

	store, err := history.NewStore(database)
	if err != nil {
		panic(err)
	}

	weights, err := consolidation.NewWeights(config.ConsolidatorConfig.WMips, config.ConsolidatorConfig.WIops)
	if err != nil {
		panic(err)
	}

	model := power.Linear{IdleWatts: 93.7, MaxWatts: 135}

	var view *fleet.View
	switch taskName {
	case "consolidate-openstack":
		keystoneAPI := keystone.NewKeystoneAPI(config.OpenStackConfig.Keystone)
		novaAPI := openstack.NewNovaAPI(keystoneAPI, config.OpenStackConfig.Keystone.Availability)
		if err := novaAPI.Init(ctx); err != nil {
			panic(err)
		}
		view, err = openstack.Sync(ctx, novaAPI, model, 1000, 2000, 100)
		if err != nil {
			panic(err)
		}
	case "consolidate":
		view = fleet.NewView(nil)
	default:
		slog.Error("invalid arguments", "args", args)
		panic(usage)
	}

	detector := &consolidation.OverloadDetector{
		View: view,
		CPU:  newOverloadPredicate(config.ConsolidatorConfig.OverloadCPU),
		IO:   newOverloadPredicate(config.ConsolidatorConfig.OverloadIO),
	}
	evictionPlanner := &consolidation.EvictionPlanner{
		Detector:    detector,
		CPUSelector: newVmSelector(config.ConsolidatorConfig.SelectionCPU, weights),
		IOSelector:  newVmSelector(config.ConsolidatorConfig.SelectionIO, weights),
		Weights:     weights,
	}
	placementSearch := &consolidation.PlacementSearch{View: view, Detector: detector}
	hist := consolidation.NewHistory()
	monitor := consolidation.NewMonitor(registry)

	consolidator := &consolidation.Consolidator{
		View:      view,
		Detector:  detector,
		Eviction:  evictionPlanner,
		Placement: placementSearch,
		Weights:   weights,
		History:   hist,
		Monitor:   monitor,
	}

	interval := time.Duration(config.ConsolidatorConfig.PassIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	for {
		migrationMap, err := consolidator.Optimize(nil)
		if err != nil {
			slog.Error("consolidation: pass failed", "error", err)
		} else {
			slog.Info("consolidation: pass complete", "placements", len(migrationMap))
		}
		if err := store.Record(
			map[string][]time.Duration{
				"total": hist.Durations("total"),
			},
			migrationMap, err,
		); err != nil {
			slog.Error("consolidation: failed to persist pass history", "error", err)
		}
		if errors.Is(err, consolidation.ErrRestoreFailed) {
			panic(err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(jobloop.DefaultJitter(interval)):
		}
	}
}
