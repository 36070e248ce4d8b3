package journal

import (
	"time"

	"main/pkg/conn"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
)

// TradeRecord is the Postgres mirror of one trade-log line.
type TradeRecord struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time
	Timestamp time.Time `gorm:"index"`
	Symbol    string    `gorm:"index;size:32"`
	Event     string    `gorm:"size:16"`
	Quantity  float64
	Price     float64
}

func (TradeRecord) TableName() string { return "trade_records" }

// Store mirrors trade-log records into Postgres for later analysis.
type Store struct {
	db *gorm.DB
}

// NewStore migrates the schema and returns a store bound to the client.
func NewStore(client *conn.Client) (*Store, error) {
	if client == nil || client.DB() == nil {
		return nil, errors.New("nil postgres client")
	}
	if err := client.DB().AutoMigrate(&TradeRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate trade_records")
	}
	return &Store{db: client.DB()}, nil
}

// Append inserts one record.
func (s *Store) Append(r Record) error {
	row := TradeRecord{
		Timestamp: r.Timestamp.UTC(),
		Symbol:    r.Symbol,
		Event:     string(r.Event),
		Quantity:  r.Quantity,
		Price:     r.Price,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return errors.Wrap(err, "insert trade record").With("symbol", r.Symbol)
	}
	return nil
}

// Records returns every stored record for a symbol, oldest first.
func (s *Store) Records(symbol string) ([]TradeRecord, error) {
	var rows []TradeRecord
	err := s.db.Where("symbol = ?", symbol).Order("timestamp asc").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query trade records").With("symbol", symbol)
	}
	return rows, nil
}
