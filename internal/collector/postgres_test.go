package collector

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type queryCall struct {
	query string
	args  []driver.NamedValue
	exec  bool
}

type mockResult struct {
	columns []string
	rows    [][]driver.Value
	err     error
}

type mockState struct {
	mu      sync.Mutex
	calls   []queryCall
	execErr error
	results func(query string, args []driver.NamedValue) mockResult
}

type mockDriver struct {
	state *mockState
}

func (d *mockDriver) Open(name string) (driver.Conn, error) {
	return &mockConn{state: d.state}, nil
}

type mockConn struct {
	state *mockState
}

func (c *mockConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *mockConn) Close() error {
	return nil
}

func (c *mockConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *mockConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()

	c.state.calls = append(c.state.calls, queryCall{query: query, args: args, exec: true})
	if c.state.execErr != nil {
		return nil, c.state.execErr
	}
	return driver.RowsAffected(0), nil
}

func (c *mockConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()

	copiedArgs := make([]driver.NamedValue, len(args))
	copy(copiedArgs, args)
	c.state.calls = append(c.state.calls, queryCall{query: query, args: copiedArgs})

	res := mockResult{columns: []string{"count"}}
	if c.state.results != nil {
		res = c.state.results(query, copiedArgs)
	}
	if res.err != nil {
		return nil, res.err
	}
	return &mockRows{columns: res.columns, values: res.rows}, nil
}

var (
	_ driver.QueryerContext = (*mockConn)(nil)
	_ driver.ExecerContext  = (*mockConn)(nil)
)

var driverCounter uint64

func newMockDB(t *testing.T, state *mockState) *sql.DB {
	t.Helper()
	name := fmt.Sprintf("mockpg-%d", atomic.AddUint64(&driverCounter, 1))
	sql.Register(name, &mockDriver{state: state})
	db, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("failed to open mock db: %v", err)
	}
	return db
}

type mockRows struct {
	columns []string
	values  [][]driver.Value
	idx     int
}

func (r *mockRows) Columns() []string {
	return r.columns
}

func (r *mockRows) Close() error {
	return nil
}

func (r *mockRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSource(t *testing.T, state *mockState) *PostgresSource {
	t.Helper()
	src, err := newPostgresSource(context.Background(), newMockDB(t, state), testLogger())
	if err != nil {
		t.Fatalf("failed to create source: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestQuerySetsSearchPathBeforeQuery(t *testing.T) {
	state := &mockState{
		results: func(query string, args []driver.NamedValue) mockResult {
			return mockResult{
				columns: []string{"technology", "loc"},
				rows: [][]driver.Value{
					{"JEE", int64(59803)},
					{[]byte("SQL"), float64(0)},
				},
			}
		},
	}
	src := newTestSource(t, state)

	table, err := src.Query(context.Background(), "app1_central", "SELECT technology, loc FROM t")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(state.calls) != 2 {
		t.Fatalf("expected exec + query, got %d calls", len(state.calls))
	}
	if !state.calls[0].exec || state.calls[0].query != `SET search_path TO "app1_central"` {
		t.Fatalf("unexpected first call: %+v", state.calls[0])
	}
	if state.calls[1].exec || state.calls[1].query != "SELECT technology, loc FROM t" {
		t.Fatalf("unexpected second call: %+v", state.calls[1])
	}

	if len(table) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table))
	}
	if table[0][0] != "JEE" || table[0][1] != int64(59803) {
		t.Fatalf("unexpected first row: %v", table[0])
	}
	if b, ok := table[1][0].([]byte); !ok || string(b) != "SQL" {
		t.Fatalf("expected raw bytes in second row, got %#v", table[1][0])
	}
}

func TestQueryQuotesSchemaIdentifier(t *testing.T) {
	state := &mockState{}
	src := newTestSource(t, state)

	if _, err := src.Query(context.Background(), `evil"; DROP TABLE x; --_local`, "SELECT 1"); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	want := `SET search_path TO "evil""; DROP TABLE x; --_local"`
	if state.calls[0].query != want {
		t.Fatalf("expected quoted identifier %q, got %q", want, state.calls[0].query)
	}
}

func TestQueryFoldsSchemaToLowerCase(t *testing.T) {
	state := &mockState{}
	src := newTestSource(t, state)

	if _, err := src.Query(context.Background(), "Billing_Central", "SELECT 1"); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	want := `SET search_path TO "billing_central"`
	if state.calls[0].query != want {
		t.Fatalf("expected folded schema %q, got %q", want, state.calls[0].query)
	}
}

func TestQueryWithoutSchemaSkipsSearchPath(t *testing.T) {
	state := &mockState{}
	src := newTestSource(t, state)

	if _, err := src.Query(context.Background(), "", "SELECT 1"); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(state.calls) != 1 || state.calls[0].exec {
		t.Fatalf("expected a single query call, got %+v", state.calls)
	}
}

func TestQuerySearchPathFailure(t *testing.T) {
	state := &mockState{execErr: errors.New(`schema "x_mngt" does not exist`)}
	src := newTestSource(t, state)

	_, err := src.Query(context.Background(), "x_mngt", "SELECT 1")
	if err == nil || !strings.Contains(err.Error(), "failed to set search_path to x_mngt") {
		t.Fatalf("expected search_path error, got %v", err)
	}
}

func TestDomainsAndApplications(t *testing.T) {
	state := &mockState{
		results: func(query string, args []driver.NamedValue) mockResult {
			switch {
			case strings.Contains(query, "aip_node.domain"):
				return mockResult{
					columns: []string{"guid", "name"},
					rows:    [][]driver.Value{{"g1", "Finance"}, {[]byte("g2"), "Retail"}},
				}
			case strings.Contains(query, "connection_profile"):
				return mockResult{
					columns: []string{"name", "schema_prefix", "domain_guid"},
					rows: [][]driver.Value{
						{"billing", "billing_pfx", "g1"},
						{"legacy", "legacy_pfx", nil},
					},
				}
			}
			return mockResult{err: fmt.Errorf("unexpected query %q", query)}
		},
	}
	src := newTestSource(t, state)
	ctx := context.Background()

	domains, err := src.Domains(ctx)
	if err != nil {
		t.Fatalf("Domains failed: %v", err)
	}
	if len(domains) != 2 || domains[1].GUID != "g2" || domains[1].Name != "Retail" {
		t.Fatalf("unexpected domains: %+v", domains)
	}

	guid := "g1"
	apps, err := src.Applications(ctx, &guid)
	if err != nil {
		t.Fatalf("Applications failed: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("expected 2 applications, got %d", len(apps))
	}
	if !apps[0].InDomain() || *apps[0].DomainGUID != "g1" || apps[0].SchemaPrefix != "billing_pfx" {
		t.Fatalf("unexpected first application: %+v", apps[0])
	}
	if apps[1].InDomain() {
		t.Fatalf("expected nil domain for legacy, got %v", *apps[1].DomainGUID)
	}

	last := state.calls[len(state.calls)-1]
	if len(last.args) != 1 || last.args[0].Value != "g1" {
		t.Fatalf("expected domain guid argument, got %+v", last.args)
	}

	if _, err := src.Applications(ctx, nil); err != nil {
		t.Fatalf("Applications(nil) failed: %v", err)
	}
	last = state.calls[len(state.calls)-1]
	if len(last.args) != 0 || !strings.Contains(last.query, "a.domain_guid IS NULL") {
		t.Fatalf("expected domain-less listing without args, got %+v", last)
	}
}
