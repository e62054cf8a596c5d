package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/upgradespectre/internal/catalog"
	"github.com/ppiankov/upgradespectre/internal/models"
	"github.com/ppiankov/upgradespectre/pkg/config"
)

// Collector gathers metric records from one deployment
type Collector interface {
	Collect(ctx context.Context) ([]*models.MetricRecord, error)
	Close() error
}

// ObjectCounter is the graph side of a deployment.
type ObjectCounter interface {
	ObjectCounts(ctx context.Context, tenants []string) (models.ObjectCounts, error)
}

// collector implements the Collector interface
type collector struct {
	deployment config.Deployment
	graph      ObjectCounter
	pipeline   *Pipeline
	closers    []func() error
}

// New connects to both data sources of a deployment. Connection failures
// are returned as errors; the caller aborts the pass.
func New(ctx context.Context, cfg *config.Config, d config.Deployment, cat *catalog.Catalog, logger *slog.Logger) (Collector, error) {
	logger = logger.With(slog.String("deployment", d.Name))

	pg, err := NewPostgresSource(ctx, d.Postgres, cfg.ConnectTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres source: %w", err)
	}

	graph, err := NewGraphSource(ctx, d.Neo4j, cfg.GraphRateLimit, cfg.ConnectTimeout, logger)
	if err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("failed to create neo4j source: %w", err)
	}

	c := newCollector(d, pg, graph, cat, cfg.DefaultSchemaPrefix, logger)
	c.closers = []func() error{
		pg.Close,
		func() error { return graph.Close(context.Background()) },
	}
	return c, nil
}

func newCollector(d config.Deployment, source RelationalSource, graph ObjectCounter, cat *catalog.Catalog, defaultSchemaPrefix string, logger *slog.Logger) *collector {
	return &collector{
		deployment: d,
		graph:      graph,
		pipeline:   NewPipeline(source, cat, defaultSchemaPrefix, logger),
	}
}

// Collect builds the object count table once, then runs the pipeline.
func (c *collector) Collect(ctx context.Context) ([]*models.MetricRecord, error) {
	counts, err := c.graph.ObjectCounts(ctx, c.deployment.Neo4j.Databases)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object counts: %w", err)
	}

	records, err := c.pipeline.Run(ctx, counts)
	if err != nil {
		return nil, fmt.Errorf("failed to collect metrics: %w", err)
	}
	return records, nil
}

// Close closes both data sources
func (c *collector) Close() error {
	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
