package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/upgradespectre/internal/catalog"
	"github.com/ppiankov/upgradespectre/internal/models"
)

// RelationalSource is the relational side of a deployment.
type RelationalSource interface {
	Domains(ctx context.Context) ([]models.Domain, error)
	Applications(ctx context.Context, domainGUID *string) ([]models.Application, error)
	Query(ctx context.Context, schema, query string, args ...any) (models.Table, error)
}

// Pipeline walks domains and applications and runs the metric catalog
// against each application's schemas.
type Pipeline struct {
	source              RelationalSource
	catalog             *catalog.Catalog
	logger              *slog.Logger
	defaultSchemaPrefix string
}

// NewPipeline creates a pipeline. defaultSchemaPrefix is used for
// applications whose connection profile carries no prefix.
func NewPipeline(source RelationalSource, cat *catalog.Catalog, defaultSchemaPrefix string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		source:              source,
		catalog:             cat,
		logger:              logger,
		defaultSchemaPrefix: defaultSchemaPrefix,
	}
}

// Run collects one record per successfully processed application. An
// application whose queries fail is logged and skipped; a lost connection
// or cancellation aborts the run. Domain-less
// applications are listed with every domain but reported only once.
func (p *Pipeline) Run(ctx context.Context, counts models.ObjectCounts) ([]*models.MetricRecord, error) {
	p.logger.Info("fetching domains")
	domains, err := p.source.Domains(ctx)
	if err != nil {
		return nil, err
	}

	var passes []*models.Domain
	for i := range domains {
		passes = append(passes, &domains[i])
	}
	if len(passes) == 0 {
		p.logger.Warn("no domains found, collecting domain-less applications only")
		passes = append(passes, nil)
	}

	var (
		records      []*models.MetricRecord
		seenDefaults = map[string]struct{}{}
		failed       int
	)
	for _, domain := range passes {
		var guid *string
		domainName := models.DefaultSheet
		if domain != nil {
			guid = &domain.GUID
			domainName = domain.Name
		}

		logger := p.logger.With(slog.String("domain", domainName))
		logger.Info("starting domain processing")

		apps, err := p.source.Applications(ctx, guid)
		if err != nil {
			return nil, fmt.Errorf("domain %s: %w", domainName, err)
		}

		for _, app := range apps {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			sheet := models.SheetFor(app, domainName)
			if !app.InDomain() {
				if _, dup := seenDefaults[app.Name]; dup {
					logger.Debug("skipping duplicate domain-less application", slog.String("app", app.Name))
					continue
				}
				seenDefaults[app.Name] = struct{}{}
			}

			rec, err := p.collectApplication(ctx, app, sheet, counts)
			if err != nil {
				if isFatal(err) {
					return nil, fmt.Errorf("application %s: %w", app.Name, err)
				}
				failed++
				logger.Error("application skipped",
					slog.String("app", app.Name),
					slog.String("sheet", sheet),
					slog.String("error", err.Error()),
				)
				continue
			}

			logger.Info("application collected",
				slog.String("app", app.Name),
				slog.String("sheet", sheet),
				slog.String("schema", rec.Schema),
				slog.Int64("objects", counts[app.Name]),
			)
			records = append(records, rec)
		}
	}

	p.logger.Info("collection completed",
		slog.Int("applications", len(records)),
		slog.Int("skipped", failed),
	)
	return records, nil
}

func (p *Pipeline) collectApplication(ctx context.Context, app models.Application, sheet string, counts models.ObjectCounts) (*models.MetricRecord, error) {
	prefix := app.SchemaPrefix
	if prefix == "" {
		prefix = p.defaultSchemaPrefix
	}
	if prefix == "" {
		return nil, fmt.Errorf("application %s has no schema prefix", app.Name)
	}

	values := make(map[string]models.Table, len(p.catalog.Metrics()))
	for _, m := range p.catalog.Execution() {
		schema := m.Namespace.Schema(prefix)
		query, args := m.QueryFor(app.Name, app.DomainGUID)
		table, err := p.source.Query(ctx, schema, query, args...)
		if err != nil {
			return nil, &MetricError{Metric: m.Key, Schema: schema, Err: err}
		}
		values[m.Key] = table
	}

	for _, m := range p.catalog.Metrics() {
		if !m.Relational() {
			values[m.Key] = models.Table{{counts[app.Name]}}
		}
	}

	return &models.MetricRecord{
		Application: app,
		Sheet:       sheet,
		Schema:      prefix,
		Values:      values,
	}, nil
}
