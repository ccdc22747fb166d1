/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/valpere/kalimax-triage/internal"
	"github.com/valpere/kalimax-triage/internal/batcher"
	"github.com/valpere/kalimax-triage/internal/config"
	"github.com/valpere/kalimax-triage/internal/coordinator"
	"github.com/valpere/kalimax-triage/internal/logging"
	"github.com/valpere/kalimax-triage/internal/priority"
	"github.com/valpere/kalimax-triage/internal/risk"
	"github.com/valpere/kalimax-triage/internal/store"
)

var (
	settings = config.New()
	cfgFile  string
	cfg      *config.Config

	logger    = slog.Default()
	logCloser io.Closer
)

// bindFlag ties a config key to a flag; a flag set on the command line
// overrides the file and environment.
func bindFlag(key string, f *pflag.Flag) {
	if err := settings.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

func setup() error {
	loaded, err := config.Load(settings, cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	l, closer, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	logger, logCloser = l, closer
	slog.SetDefault(logger)
	return nil
}

func teardown() error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

// app wires the store and the four components from the loaded config.
type app struct {
	store   *store.Store
	rules   risk.RuleSet
	risk    *risk.Classifier
	scorer  *priority.Scorer
	batcher *batcher.Batcher
	coord   *coordinator.Coordinator
}

func openApp(ctx context.Context) (*app, error) {
	st, err := store.New(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := st.Ping(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	rules, err := buildRules(ctx, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	tables := priority.DefaultTables
	if cfg.Queue.IncludeExpressions {
		tables = append(tables[:len(tables):len(tables)], internal.TableExpressions)
	}

	a := &app{store: st, rules: rules}
	a.risk = risk.New(rules, st, risk.Options{WriteBatch: cfg.Sweep.WriteBatch, Logger: logger})
	a.scorer = priority.New(priority.NewTermSet(rules.CriticalTerms()...), st, priority.Options{
		Tables: tables,
		Logger: logger,
	})
	a.batcher = batcher.New(batcher.DefaultTaxonomy(), st, logger)
	a.coord = coordinator.New(st, a.risk, a.scorer, a.batcher, coordinator.Options{
		BatchSize:        cfg.Batch.Size,
		ReportQueueLimit: cfg.Report.QueueLimit,
		Logger:           logger,
	})
	return a, nil
}

// buildRules extends the built-in rules with configured rules and, when
// enabled, the curated critical terms of the store.
func buildRules(ctx context.Context, st *store.Store) (risk.RuleSet, error) {
	rules := risk.DefaultRules()

	extra, err := risk.RulesFromSpecs(cfg.Risk.ExtraRules)
	if err != nil {
		return risk.RuleSet{}, err
	}
	rules = rules.With(extra...)

	if cfg.Risk.LoadStoreTerms {
		curated, err := risk.StoreRules(ctx, st)
		if err != nil {
			return risk.RuleSet{}, err
		}
		rules = rules.With(curated...)
		logger.Debug("rules loaded", "configured", len(extra), "curated", len(curated))
	}
	return rules, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}
