// Package catalog records rendered products in a SQL database so earlier
// renders can be looked up by request.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/wx-graphics/internal/config"
	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/couchcryptid/wx-graphics/internal/observability"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Product is one rendered image.
type Product struct {
	RequestID  string
	Kind       string
	Path       string
	Model      string
	Region     string
	Reference  string
	Parameter  string
	RenderedAt time.Time
}

// Catalog stores products in Postgres or SQLite.
// It implements pipeline.BatchLoader.
type Catalog struct {
	db      *sql.DB
	driver  string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Open connects to the catalog database. driver is config.DriverPostgres or
// config.DriverSQLite.
func Open(driver, dsn string, metrics *observability.Metrics, logger *slog.Logger) (*Catalog, error) {
	switch driver {
	case config.DriverPostgres, config.DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported catalog driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if driver == config.DriverSQLite {
		// One writer at a time; avoids SQLITE_BUSY from the pool.
		db.SetMaxOpenConns(1)
	}
	return New(db, driver, metrics, logger), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, driver string, metrics *observability.Metrics, logger *slog.Logger) *Catalog {
	return &Catalog{db: db, driver: driver, metrics: metrics, logger: logger}
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Migrate creates the products table if it does not exist.
func (c *Catalog) Migrate(ctx context.Context) error {
	ts := "TIMESTAMP"
	if c.driver == config.DriverPostgres {
		ts = "TIMESTAMPTZ"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rendered_products (
			request_id  TEXT NOT NULL,
			kind        TEXT NOT NULL,
			path        TEXT NOT NULL,
			model       TEXT NOT NULL DEFAULT '',
			region      TEXT NOT NULL DEFAULT '',
			reference   TEXT NOT NULL DEFAULT '',
			parameter   TEXT NOT NULL DEFAULT '',
			rendered_at ` + ts + ` NOT NULL,
			PRIMARY KEY (request_id, path)
		)`,
		`CREATE INDEX IF NOT EXISTS rendered_products_rendered_at ON rendered_products (rendered_at)`,
	}
	for _, s := range stmts {
		if _, err := c.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate catalog: %w", err)
		}
	}
	return nil
}

const insertProduct = `INSERT INTO rendered_products
	(request_id, kind, path, model, region, reference, parameter, rendered_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const deleteRequest = `DELETE FROM rendered_products WHERE request_id = ?`

// Record stores every image of a result. Re-rendering a request replaces
// its earlier rows.
func (c *Catalog) Record(ctx context.Context, res domain.PlotResult) error {
	if res.RequestID == "" {
		return errors.New("record product: empty request id")
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record product: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, c.rebind(deleteRequest), res.RequestID); err != nil {
		return fmt.Errorf("record product: clear %s: %w", res.RequestID, err)
	}
	q := c.rebind(insertProduct)
	req := res.Request
	for _, p := range res.Paths {
		_, err := tx.ExecContext(ctx, q,
			res.RequestID, res.Kind, p,
			req.Model, req.Region, req.Reference, req.Parameter,
			res.RenderedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("record product %s: %w", p, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record product: %w", err)
	}
	c.metrics.CatalogRecords.Add(float64(len(res.Paths)))
	return nil
}

// LoadBatch records a batch of results.
func (c *Catalog) LoadBatch(ctx context.Context, results []domain.PlotResult) error {
	for _, res := range results {
		if err := c.Record(ctx, res); err != nil {
			return err
		}
	}
	c.logger.Debug("catalog batch recorded", "results", len(results))
	return nil
}

// ListByRequest returns the products of a request ordered by path.
func (c *Catalog) ListByRequest(ctx context.Context, requestID string) ([]Product, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(`SELECT
		request_id, kind, path, model, region, reference, parameter, rendered_at
		FROM rendered_products WHERE request_id = ? ORDER BY path`), requestID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		err := rows.Scan(&p.RequestID, &p.Kind, &p.Path, &p.Model, &p.Region, &p.Reference, &p.Parameter, &p.RenderedAt)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.RenderedAt = p.RenderedAt.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

// rebind rewrites ? placeholders as $n for Postgres.
func (c *Catalog) rebind(q string) string {
	if c.driver != config.DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
