package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/billshop/shopai-go/internal/logging"
)

// InventoryRow is a product with its stock level.
type InventoryRow struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	InventoryQty int    `json:"inventory_qty"`
}

// Product is the subset of a product row that is embedded for search.
type Product struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	FeaturedImage string  `json:"featured_image"`
	Description   string  `json:"description"`
}

// OrderOwnedBy reports whether order orderID belongs to the customer with
// the given email.
func (s *Store) OrderOwnedBy(ctx context.Context, orderID int64, email string) (bool, error) {
	q := fmt.Sprintf(`SELECT o.id FROM %s o JOIN %s c ON o.customer_id = c.id WHERE o.id = %s AND c.email = %s`,
		s.dialect.Quote("order"), s.dialect.Quote("customer"),
		s.dialect.Placeholder(1), s.dialect.Placeholder(2))

	var id int64
	err := s.db.QueryRowContext(ctx, q, orderID, email).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("catalog: order ownership: %w", err)
	}
	return true, nil
}

// SlowMoving returns products stocked at or above high and strictly above low.
func (s *Store) SlowMoving(ctx context.Context, high, low int) ([]InventoryRow, error) {
	q := fmt.Sprintf(`SELECT id, name, inventory_qty FROM %s WHERE inventory_qty >= %s AND inventory_qty > %s ORDER BY inventory_qty DESC, id`,
		s.dialect.Quote("product"), s.dialect.Placeholder(1), s.dialect.Placeholder(2))
	return s.inventory(ctx, "slow moving", q, high, low)
}

// NearOutOfStock returns products stocked at or below low.
func (s *Store) NearOutOfStock(ctx context.Context, low int) ([]InventoryRow, error) {
	q := fmt.Sprintf(`SELECT id, name, inventory_qty FROM %s WHERE inventory_qty <= %s ORDER BY inventory_qty, id`,
		s.dialect.Quote("product"), s.dialect.Placeholder(1))
	return s.inventory(ctx, "near out of stock", q, low)
}

func (s *Store) inventory(ctx context.Context, what, q string, args ...any) ([]InventoryRow, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", what, err)
	}
	defer rows.Close()

	out := []InventoryRow{}
	for rows.Next() {
		var r InventoryRow
		if err := rows.Scan(&r.ID, &r.Name, &r.InventoryQty); err != nil {
			return nil, fmt.Errorf("catalog: %s scan: %w", what, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: %s rows: %w", what, err)
	}
	return out, nil
}

// Products returns every product for vector ingestion.
func (s *Store) Products(ctx context.Context) ([]Product, error) {
	q := fmt.Sprintf(`SELECT id, name, price, featured_image, description FROM %s ORDER BY id`, s.dialect.Quote("product"))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("catalog: products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var (
			p     Product
			price sql.NullFloat64
			image sql.NullString
			desc  sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &image, &desc); err != nil {
			return nil, fmt.Errorf("catalog: products scan: %w", err)
		}
		p.Price = price.Float64
		p.FeaturedImage = image.String
		p.Description = desc.String
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: products rows: %w", err)
	}
	return out, nil
}

// QueryResult is the tabular output of an ad-hoc SELECT.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	// Truncated is set when more rows existed than were read.
	Truncated bool `json:"truncated,omitempty"`
}

// Format renders the result as pipe-separated text for an LLM prompt.
func (r *QueryResult) Format() string {
	if len(r.Rows) == 0 {
		return "(no rows)"
	}
	var b strings.Builder
	b.WriteString(strings.Join(r.Columns, " | "))
	for _, row := range r.Rows {
		b.WriteByte('\n')
		for i, v := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			fmt.Fprint(&b, v)
		}
	}
	if r.Truncated {
		fmt.Fprintf(&b, "\n(truncated to %d rows)", len(r.Rows))
	}
	return b.String()
}

// Query runs a statement that the caller has already vetted as a read-only
// SELECT and reads at most maxRows rows.
func (s *Store) Query(ctx context.Context, query string, maxRows int) (*QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: query: %w", err)
	}
	defer rows.Close()
	return readRows(rows, maxRows)
}

func readRows(rows *sql.Rows, maxRows int) (*QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("catalog: columns: %w", err)
	}
	res := &QueryResult{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		if maxRows > 0 && len(res.Rows) >= maxRows {
			res.Truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		for i, v := range vals {
			vals[i] = normalizeValue(v)
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: rows: %w", err)
	}
	return res, nil
}

// normalizeValue turns driver byte slices into strings and times into
// RFC 3339 so results are printable and JSON friendly.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return t
	}
}

// TableInfo describes the readable tables: column names with database types
// and up to three sample rows each. Tables missing from the database are
// skipped.
func (s *Store) TableInfo(ctx context.Context) (string, error) {
	var b strings.Builder
	for _, table := range s.tables {
		info, err := s.describe(ctx, table)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("catalog: table info: %w", ctx.Err())
			}
			logging.FromContext(ctx).Debug("catalog: skipping table", slog.String("table", table), slog.String("error", err.Error()))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(info)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("catalog: none of the allowed tables exist")
	}
	return b.String(), nil
}

// Describe returns the TableInfo section for one table, which must be in the
// allow-list.
func (s *Store) Describe(ctx context.Context, table string) (string, error) {
	if !s.allowed(table) {
		return "", fmt.Errorf("catalog: table %q is not readable", table)
	}
	return s.describe(ctx, table)
}

func (s *Store) describe(ctx context.Context, table string) (string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 3", s.dialect.Quote(table)))
	if err != nil {
		return "", err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return "", err
	}
	cols := make([]string, 0, len(types))
	for _, ct := range types {
		if tn := ct.DatabaseTypeName(); tn != "" {
			cols = append(cols, ct.Name()+" "+tn)
		} else {
			cols = append(cols, ct.Name())
		}
	}
	sample, err := readRows(rows, 3)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Table %s (%s)\nSample rows:\n%s", table, strings.Join(cols, ", "), sample.Format()), nil
}

func (s *Store) allowed(table string) bool {
	for _, t := range s.tables {
		if strings.EqualFold(t, table) {
			return true
		}
	}
	return false
}
