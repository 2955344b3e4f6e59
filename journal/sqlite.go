package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the default Store, one database file per deployment.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the journal at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// One writer at a time; the engine is single threaded per cycle anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(SQLiteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) QueryOpenLegs(ctx context.Context, symbol string) ([]Leg, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columns+`
		FROM orders
		WHERE position_status = ? AND symbol = ?
		ORDER BY created_at ASC, id ASC`, StatusOpen, symbol)
	if err != nil {
		return nil, classify("query open legs", err)
	}
	defer rows.Close()

	legs, err := scanLegs(rows)
	return legs, classify("query open legs", err)
}

func (s *SQLite) ListAll(ctx context.Context) ([]Leg, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columns+`
		FROM orders
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, classify("list records", err)
	}
	defer rows.Close()

	legs, err := scanLegs(rows)
	return legs, classify("list records", err)
}

func (s *SQLite) InsertLeg(ctx context.Context, leg Leg) error {
	return classify("insert leg", s.tx(ctx, func(tx *sql.Tx) error {
		return insert(ctx, tx, leg)
	}))
}

func (s *SQLite) MarkLegsClosed(ctx context.Context, ids []string) error {
	return classify("mark legs closed", s.tx(ctx, func(tx *sql.Tx) error {
		return markClosed(ctx, tx, ids)
	}))
}

func (s *SQLite) CloseAggregate(ctx context.Context, rec Leg, ids []string) error {
	return classify("close aggregate", s.tx(ctx, func(tx *sql.Tx) error {
		if err := insert(ctx, tx, rec); err != nil {
			return err
		}
		return markClosed(ctx, tx, ids)
	}))
}

func (s *SQLite) SumPnL(ctx context.Context, symbol string) (PnLSummary, error) {
	var out PnLSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN symbol = ? THEN pl ELSE 0 END), 0),
			COALESCE(SUM(pl), 0)
		FROM orders`, symbol).Scan(&out.Symbol, &out.Total)
	return out, classify("sum pnl", err)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insert(ctx context.Context, tx *sql.Tx, l Leg) error {
	closed, err := encodeIDs(l.ClosedLegs)
	if err != nil {
		return err
	}
	created := l.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OrderID, l.AggTradeID, l.Symbol, l.Action,
		l.Price, l.Amount, l.Cost, l.StopLossPrice, l.ATR,
		l.FreeBalance, l.TotalBalance, l.PL, l.PLPercent,
		l.Status, closed, created.UTC(),
	)
	return err
}

func markClosed(ctx context.Context, tx *sql.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, StatusClosed)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	_, err := tx.ExecContext(ctx,
		`UPDATE orders SET position_status = ? WHERE id IN (`+placeholders+`)`, args...)
	return err
}

func scanLegs(rows *sql.Rows) ([]Leg, error) {
	var out []Leg
	for rows.Next() {
		var (
			l      Leg
			closed string
		)
		if err := rows.Scan(
			&l.ID, &l.OrderID, &l.AggTradeID, &l.Symbol, &l.Action,
			&l.Price, &l.Amount, &l.Cost, &l.StopLossPrice, &l.ATR,
			&l.FreeBalance, &l.TotalBalance, &l.PL, &l.PLPercent,
			&l.Status, &closed, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		ids, err := decodeIDs(closed)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", l.ID, err)
		}
		l.ClosedLegs = ids
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeIDs(ids []string) (string, error) {
	if len(ids) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(ids)
	return string(b), err
}

func decodeIDs(s string) ([]string, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, fmt.Errorf("closed positions: %w", err)
	}
	return ids, nil
}
