package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/turtle/internal/conn"
	"gorm.io/gorm"
)

// orderRow is the gorm mapping of a record in turtle_strategy.orders.
type orderRow struct {
	ID              string    `gorm:"column:id;primaryKey"`
	OrderID         string    `gorm:"column:order_id;index"`
	AggTradeID      string    `gorm:"column:agg_trade_id;index"`
	Symbol          string    `gorm:"column:symbol;index:idx_orders_open,priority:1"`
	Action          string    `gorm:"column:action"`
	Price           float64   `gorm:"column:price"`
	Amount          float64   `gorm:"column:amount"`
	Cost            float64   `gorm:"column:cost"`
	StopLossPrice   float64   `gorm:"column:stop_loss_price"`
	ATR             float64   `gorm:"column:atr"`
	FreeBalance     float64   `gorm:"column:free_balance"`
	TotalBalance    float64   `gorm:"column:total_balance"`
	PL              float64   `gorm:"column:pl"`
	PLPercent       float64   `gorm:"column:pl_percent"`
	PositionStatus  string    `gorm:"column:position_status;index:idx_orders_open,priority:2"`
	ClosedPositions string    `gorm:"column:closed_positions"`
	CreatedAt       time.Time `gorm:"column:created_at;index:idx_orders_open,priority:3"`
}

func (orderRow) TableName() string { return PostgresSchema + ".orders" }

func toRow(l Leg) (orderRow, error) {
	closed, err := encodeIDs(l.ClosedLegs)
	if err != nil {
		return orderRow{}, err
	}
	created := l.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return orderRow{
		ID:              l.ID,
		OrderID:         l.OrderID,
		AggTradeID:      l.AggTradeID,
		Symbol:          l.Symbol,
		Action:          string(l.Action),
		Price:           l.Price,
		Amount:          l.Amount,
		Cost:            l.Cost,
		StopLossPrice:   l.StopLossPrice,
		ATR:             l.ATR,
		FreeBalance:     l.FreeBalance,
		TotalBalance:    l.TotalBalance,
		PL:              l.PL,
		PLPercent:       l.PLPercent,
		PositionStatus:  string(l.Status),
		ClosedPositions: closed,
		CreatedAt:       created.UTC(),
	}, nil
}

func (r orderRow) leg() (Leg, error) {
	ids, err := decodeIDs(r.ClosedPositions)
	if err != nil {
		return Leg{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return Leg{
		ID:            r.ID,
		OrderID:       r.OrderID,
		AggTradeID:    r.AggTradeID,
		Symbol:        r.Symbol,
		Action:        Action(r.Action),
		Price:         r.Price,
		Amount:        r.Amount,
		Cost:          r.Cost,
		StopLossPrice: r.StopLossPrice,
		ATR:           r.ATR,
		FreeBalance:   r.FreeBalance,
		TotalBalance:  r.TotalBalance,
		PL:            r.PL,
		PLPercent:     r.PLPercent,
		Status:        Status(r.PositionStatus),
		ClosedLegs:    ids,
		CreatedAt:     r.CreatedAt,
	}, nil
}

// Postgres stores records in the turtle_strategy schema through gorm.
type Postgres struct {
	db *gorm.DB
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects and creates the schema and table when missing.
func NewPostgres(opt conn.Option) (*Postgres, error) {
	db, err := conn.Open(opt)
	if err != nil {
		return nil, classify("connect postgres", err)
	}
	p := NewPostgresFromDB(db)
	if err := p.Migrate(); err != nil {
		_ = conn.Close(db)
		return nil, err
	}
	return p, nil
}

// NewPostgresFromDB wraps an existing gorm handle without migrating.
func NewPostgresFromDB(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the schema and the orders table.
func (p *Postgres) Migrate() error {
	if err := p.db.Exec("CREATE SCHEMA IF NOT EXISTS " + PostgresSchema).Error; err != nil {
		return classify("create schema", err)
	}
	return classify("migrate orders", p.db.AutoMigrate(&orderRow{}))
}

func (p *Postgres) QueryOpenLegs(ctx context.Context, symbol string) ([]Leg, error) {
	var rows []orderRow
	err := p.db.WithContext(ctx).
		Where("position_status = ? AND symbol = ?", string(StatusOpen), symbol).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, classify("query open legs", err)
	}
	return legsFromRows(rows)
}

func (p *Postgres) ListAll(ctx context.Context) ([]Leg, error) {
	var rows []orderRow
	if err := p.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, classify("list records", err)
	}
	return legsFromRows(rows)
}

func (p *Postgres) InsertLeg(ctx context.Context, leg Leg) error {
	row, err := toRow(leg)
	if err != nil {
		return err
	}
	return classify("insert leg", p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	}))
}

func (p *Postgres) MarkLegsClosed(ctx context.Context, ids []string) error {
	return classify("mark legs closed", p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return pgMarkClosed(tx, ids)
	}))
}

func (p *Postgres) CloseAggregate(ctx context.Context, rec Leg, ids []string) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	return classify("close aggregate", p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return pgMarkClosed(tx, ids)
	}))
}

func (p *Postgres) SumPnL(ctx context.Context, symbol string) (PnLSummary, error) {
	var out PnLSummary
	db := p.db.WithContext(ctx).Model(&orderRow{})
	if err := db.Where("symbol = ?", symbol).Select("COALESCE(SUM(pl), 0)").Scan(&out.Symbol).Error; err != nil {
		return out, classify("sum pnl", err)
	}
	err := p.db.WithContext(ctx).Model(&orderRow{}).Select("COALESCE(SUM(pl), 0)").Scan(&out.Total).Error
	return out, classify("sum pnl", err)
}

func (p *Postgres) Close() error {
	return conn.Close(p.db)
}

func pgMarkClosed(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Model(&orderRow{}).
		Where("id IN ?", ids).
		Update("position_status", string(StatusClosed)).Error
}

func legsFromRows(rows []orderRow) ([]Leg, error) {
	out := make([]Leg, 0, len(rows))
	for _, r := range rows {
		l, err := r.leg()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
