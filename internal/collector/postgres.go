package collector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/ppiankov/upgradespectre/internal/catalog"
	"github.com/ppiankov/upgradespectre/internal/models"
	"github.com/ppiankov/upgradespectre/pkg/config"
)

// PostgresSource runs catalog queries on a single pinned connection.
type PostgresSource struct {
	db     *sql.DB
	conn   *sql.Conn
	logger *slog.Logger
}

// NewPostgresSource connects to the relational store.
func NewPostgresSource(ctx context.Context, pg config.PostgresConfig, connectTimeout time.Duration, logger *slog.Logger) (*PostgresSource, error) {
	db, err := sql.Open("postgres", pg.DSN(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	src, err := newPostgresSource(ctx, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("connected to postgres",
		slog.String("host", pg.Host),
		slog.Int("port", pg.Port),
		slog.String("database", pg.Database),
	)
	return src, nil
}

func newPostgresSource(ctx context.Context, db *sql.DB, logger *slog.Logger) (*PostgresSource, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresSource{db: db, conn: conn, logger: logger}, nil
}

// Query runs query with search_path set to schema. The schema is folded to
// lower case, as Postgres does for unquoted identifiers, then quoted. An
// empty schema leaves the search path alone, for queries that qualify their
// tables.
func (s *PostgresSource) Query(ctx context.Context, schema, query string, args ...any) (models.Table, error) {
	if schema != "" {
		if _, err := s.conn.ExecContext(ctx, "SET search_path TO "+pq.QuoteIdentifier(strings.ToLower(schema))); err != nil {
			return nil, fmt.Errorf("failed to set search_path to %s: %w", schema, err)
		}
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var table models.Table
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		table = append(table, models.Row(values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("query completed", slog.String("schema", schema), slog.Int("rows", len(table)))
	return table, nil
}

// Domains lists catalog domains ordered by guid.
func (s *PostgresSource) Domains(ctx context.Context) ([]models.Domain, error) {
	table, err := s.Query(ctx, "", catalog.DomainsSQL())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch domains: %w", err)
	}

	domains := make([]models.Domain, 0, len(table))
	for _, row := range table {
		if len(row) < 2 {
			continue
		}
		domains = append(domains, models.Domain{GUID: asString(row[0]), Name: asString(row[1])})
	}
	return domains, nil
}

// Applications lists the applications of a domain together with every
// domain-less application. A nil guid lists domain-less applications only.
func (s *PostgresSource) Applications(ctx context.Context, domainGUID *string) ([]models.Application, error) {
	var (
		table models.Table
		err   error
	)
	if domainGUID == nil {
		table, err = s.Query(ctx, "", catalog.ApplicationsNoDomainSQL())
	} else {
		table, err = s.Query(ctx, "", catalog.ApplicationsSQL(), *domainGUID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch applications: %w", err)
	}

	apps := make([]models.Application, 0, len(table))
	for _, row := range table {
		if len(row) < 3 {
			continue
		}
		app := models.Application{
			Name:         asString(row[0]),
			SchemaPrefix: asString(row[1]),
		}
		if row[2] != nil {
			guid := asString(row[2])
			app.DomainGUID = &guid
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// Close releases the connection.
func (s *PostgresSource) Close() error {
	if s == nil {
		return nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
