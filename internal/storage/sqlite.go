package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"intraday_trading/internal/tracker"
)

// TradeRecord is a persisted trade history row. A run may be saved more than once;
// rows are keyed by (run, symbol, decision time) and later saves overwrite earlier ones.
type TradeRecord struct {
	ID           uint      `gorm:"primaryKey"`
	RunID        string    `gorm:"size:64;uniqueIndex:idx_run_trade"`
	Symbol       string    `gorm:"size:16;uniqueIndex:idx_run_trade"`
	DecisionTime time.Time `gorm:"uniqueIndex:idx_run_trade"`
	Shares       int64
	PositionSide string `gorm:"size:8"`
	Outcome      string `gorm:"size:32"`

	BuyTime         string              `gorm:"size:8"`
	TargetBuyPrice  decimal.NullDecimal `gorm:"type:decimal(20,4)"`
	ActualBuyPrice  decimal.NullDecimal `gorm:"type:decimal(20,4)"`
	SellTime        string              `gorm:"size:8"`
	TargetSellPrice decimal.NullDecimal `gorm:"type:decimal(20,4)"`
	ActualSellPrice decimal.NullDecimal `gorm:"type:decimal(20,4)"`
	ActualGain      decimal.NullDecimal `gorm:"type:decimal(20,4)"`
	ActualProfit    decimal.NullDecimal `gorm:"type:decimal(20,4)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TradeRecord) TableName() string { return "trade_history" }

// SQLiteStore keeps trade history across runs.
type SQLiteStore struct {
	db *gorm.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open trade database: %w", err)
	}
	if err := db.AutoMigrate(&TradeRecord{}); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("migrate trade database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		// One connection, so ":memory:" databases are not split across connections.
		sqlDB.SetMaxOpenConns(1)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveTrades upserts the rows of one run in a single transaction.
func (s *SQLiteStore) SaveTrades(ctx context.Context, runID string, rows []tracker.TradeRow) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]TradeRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, TradeRecord{
			RunID:           runID,
			Symbol:          r.Symbol,
			DecisionTime:    r.DecisionTime.UTC(),
			Shares:          r.Shares,
			PositionSide:    string(r.PositionSide),
			Outcome:         string(r.Outcome),
			BuyTime:         r.BuyTime,
			TargetBuyPrice:  r.TargetBuyPrice,
			ActualBuyPrice:  r.ActualBuyPrice,
			SellTime:        r.SellTime,
			TargetSellPrice: r.TargetSellPrice,
			ActualSellPrice: r.ActualSellPrice,
			ActualGain:      r.ActualGain,
			ActualProfit:    r.ActualProfit,
		})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "symbol"}, {Name: "decision_time"}},
			UpdateAll: true,
		}).CreateInBatches(records, 100).Error
	})
}

// Trades returns a run's rows ordered by decision time then symbol.
func (s *SQLiteStore) Trades(ctx context.Context, runID string) ([]TradeRecord, error) {
	var out []TradeRecord
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("decision_time, symbol").
		Find(&out).Error
	return out, err
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
