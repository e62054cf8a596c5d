package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ppiankov/upgradespectre/internal/catalog"
	"github.com/ppiankov/upgradespectre/internal/collector"
	"github.com/ppiankov/upgradespectre/internal/logging"
	"github.com/ppiankov/upgradespectre/internal/models"
	"github.com/ppiankov/upgradespectre/internal/projector"
	"github.com/ppiankov/upgradespectre/internal/reporter"
	"github.com/ppiankov/upgradespectre/pkg/config"
)

// passOptions are the command-line overrides shared by every pass.
type passOptions struct {
	configPath    string
	output        string
	dryRun        bool
	failOnFlagged bool
}

// newCollector is replaced in tests.
var newCollector = collector.New

// loadConfig merges defaults, the config file and command-line overrides.
func loadConfig(opts *passOptions) (*config.Config, error) {
	cfg, source, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if source != "" {
		slog.Debug("config loaded", slog.String("path", source))
	}

	if opts.output != "" {
		cfg.OutputPath = opts.output
	}
	cfg.DryRun = opts.dryRun
	cfg.Verbose = verbose

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// pass bundles what one pass over the spreadsheet needs.
type pass struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	reporter *reporter.Reporter
	logger   *logging.Logger
	log      *slog.Logger
}

func newPass(opts *passOptions, name string) (*pass, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.New(cfg.CriticalViolationsQuery)
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Options{Verbose: cfg.Verbose, File: cfg.LogFile})
	log := logger.With(slog.String("pass", name))

	return &pass{
		cfg:      cfg,
		catalog:  cat,
		reporter: reporter.New(cfg, projector.New(cat, cfg.MissingCodeRule), log),
		logger:   logger,
		log:      log,
	}, nil
}

func (p *pass) Close() {
	_ = p.logger.Close()
}

// collect runs the collection pipeline against one deployment.
func (p *pass) collect(ctx context.Context, deployment string) ([]*models.MetricRecord, error) {
	d, err := p.cfg.Deployment(deployment)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	p.log.Info("connecting", slog.String("deployment", d.Name),
		slog.String("postgres", fmt.Sprintf("%s:%d", d.Postgres.Host, d.Postgres.Port)),
		slog.String("neo4j", d.Neo4j.URL),
	)
	col, err := newCollector(ctx, p.cfg, d, p.catalog, p.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create collector: %w", err)
	}
	defer col.Close()

	records, err := col.Collect(ctx)
	if err != nil {
		return nil, err
	}
	p.log.Info("collection completed", slog.String("deployment", d.Name), slog.Int("applications", len(records)))
	return records, nil
}

// runReport writes the V2 baseline report.
func runReport(ctx context.Context, opts *passOptions, out io.Writer) error {
	startTime := time.Now()
	p, err := newPass(opts, "v2")
	if err != nil {
		return err
	}
	defer p.Close()

	records, err := p.collect(ctx, "v2")
	if err != nil {
		return err
	}

	if p.cfg.DryRun {
		fmt.Fprintf(out, "Dry run: collected %d applications, nothing written\n", len(records))
		return nil
	}
	if err := p.reporter.WriteBaseline(records); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Fprintf(out, "V2 report written to %s (%d applications) in %s\n",
		p.cfg.OutputPath, len(records), time.Since(startTime).Round(time.Second))
	return nil
}

// runReconcile fills the V3 column of an existing report.
func runReconcile(ctx context.Context, opts *passOptions, out io.Writer) error {
	startTime := time.Now()
	p, err := newPass(opts, "v3")
	if err != nil {
		return err
	}
	defer p.Close()

	records, err := p.collect(ctx, "v3")
	if err != nil {
		return err
	}

	if p.cfg.DryRun {
		fmt.Fprintf(out, "Dry run: collected %d applications, nothing written\n", len(records))
		return nil
	}
	stats, err := p.reporter.Reconcile(records)
	if err != nil {
		return fmt.Errorf("failed to reconcile report: %w", err)
	}

	fmt.Fprintf(out, "V3 values reconciled into %s in %s: %d updated, %d skipped, %d with row mismatches\n",
		p.cfg.OutputPath, time.Since(startTime).Round(time.Second), stats.Updated, stats.Skipped, stats.Mismatched)
	return nil
}

// runVariation computes the Variation column and prints the summary.
func runVariation(opts *passOptions, out io.Writer) error {
	p, err := newPass(opts, "variation")
	if err != nil {
		return err
	}
	defer p.Close()

	summary, err := p.reporter.Variation()
	if err != nil {
		return fmt.Errorf("failed to compute variation: %w", err)
	}
	if err := reporter.WriteText(summary, out); err != nil {
		return err
	}

	if opts.failOnFlagged && summary.FlaggedCount() > 0 {
		return &FlaggedError{Count: summary.FlaggedCount()}
	}
	return nil
}
