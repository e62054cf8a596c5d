package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"github.com/ppiankov/upgradespectre/internal/models"
	"github.com/ppiankov/upgradespectre/pkg/config"
)

const (
	applicationsCypher = `MATCH (a:Application)
RETURN a.Name AS app_name, coalesce(a.DisplayName, a.Name) AS display_name`

	liveObjectsCypher = "MATCH (o:Object:`%s`)\nWHERE NOT 'Deleted' IN labels(o)\nRETURN count(o) AS cnt"
)

// graphApplication is an application node as listed by a tenant.
type graphApplication struct {
	Name        string
	DisplayName string
}

// tenantReader answers the two graph queries for one tenant database.
type tenantReader interface {
	Applications(ctx context.Context) ([]graphApplication, error)
	LiveObjectCount(ctx context.Context, app string) (int64, error)
	Close(ctx context.Context) error
}

// GraphSource reads per-application object counts from the graph store.
type GraphSource struct {
	driver  neo4j.DriverWithContext
	limiter *RateLimiter
	logger  *slog.Logger
	open    func(ctx context.Context, database string) tenantReader
}

// NewGraphSource connects to the graph store and verifies connectivity.
func NewGraphSource(ctx context.Context, cfg config.Neo4jConfig, rateLimit int, connectTimeout time.Duration, logger *slog.Logger) (*GraphSource, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URL,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4jconfig.Config) {
			if connectTimeout > 0 {
				c.SocketConnectTimeout = connectTimeout
				c.ConnectionAcquisitionTimeout = connectTimeout
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	logger.Info("connected to neo4j", slog.String("url", cfg.URL))

	g := &GraphSource{
		driver:  driver,
		limiter: NewRateLimiter(rateLimit),
		logger:  logger,
	}
	g.open = g.openTenant
	return g, nil
}

// ObjectCounts sums live object counts per application across tenants.
// Counts are keyed by the application's internal name, the same name the
// relational catalog uses.
func (g *GraphSource) ObjectCounts(ctx context.Context, tenants []string) (models.ObjectCounts, error) {
	g.logger.Info("fetching graph object counts", slog.Int("tenants", len(tenants)))
	counts := models.ObjectCounts{}

	for _, tenant := range tenants {
		if err := g.countTenant(ctx, tenant, counts); err != nil {
			return nil, fmt.Errorf("tenant %s: %w", tenant, err)
		}
	}

	g.logger.Info("graph object counts collected", slog.Int("applications", len(counts)))
	return counts, nil
}

func (g *GraphSource) countTenant(ctx context.Context, tenant string, counts models.ObjectCounts) error {
	logger := g.logger.With(slog.String("tenant", tenant))
	logger.Info("processing tenant")

	reader := g.open(ctx, tenant)
	defer func() {
		if err := reader.Close(ctx); err != nil {
			logger.Warn("failed to close tenant session", slog.String("error", err.Error()))
		}
	}()

	apps, err := reader.Applications(ctx)
	if err != nil {
		return fmt.Errorf("failed to list applications: %w", err)
	}

	for _, app := range apps {
		if app.Name == "" {
			continue
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		count, err := reader.LiveObjectCount(ctx, app.Name)
		if err != nil {
			return fmt.Errorf("failed to count objects of %s: %w", app.Name, err)
		}
		counts.Add(app.Name, count)
		logger.Debug("application objects counted",
			slog.String("app", app.Name),
			slog.String("display_name", app.DisplayName),
			slog.Int64("count", count),
		)
	}
	return nil
}

// Close closes the driver.
func (g *GraphSource) Close(ctx context.Context) error {
	if g == nil || g.driver == nil {
		return nil
	}
	return g.driver.Close(ctx)
}

func (g *GraphSource) openTenant(ctx context.Context, database string) tenantReader {
	return &neo4jTenant{
		session: g.driver.NewSession(ctx, neo4j.SessionConfig{
			DatabaseName: database,
			AccessMode:   neo4j.AccessModeRead,
		}),
	}
}

type neo4jTenant struct {
	session neo4j.SessionWithContext
}

func (t *neo4jTenant) Applications(ctx context.Context) ([]graphApplication, error) {
	result, err := t.session.Run(ctx, applicationsCypher, nil)
	if err != nil {
		return nil, err
	}

	var apps []graphApplication
	for result.Next(ctx) {
		record := result.Record()
		name, _, err := neo4j.GetRecordValue[string](record, "app_name")
		if err != nil {
			continue
		}
		display, _, _ := neo4j.GetRecordValue[string](record, "display_name")
		apps = append(apps, graphApplication{Name: name, DisplayName: display})
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return apps, nil
}

func (t *neo4jTenant) LiveObjectCount(ctx context.Context, app string) (int64, error) {
	result, err := t.session.Run(ctx, liveObjectsQuery(app), nil)
	if err != nil {
		return 0, err
	}
	record, err := result.Single(ctx)
	if err != nil {
		return 0, err
	}
	count, _, err := neo4j.GetRecordValue[int64](record, "cnt")
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (t *neo4jTenant) Close(ctx context.Context) error {
	return t.session.Close(ctx)
}

// liveObjectsQuery builds the count query. Labels cannot be passed as
// parameters, so the application name is quoted as a label.
func liveObjectsQuery(app string) string {
	return fmt.Sprintf(liveObjectsCypher, strings.ReplaceAll(app, "`", "``"))
}
