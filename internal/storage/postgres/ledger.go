// Package postgres stores settlement records with gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/ports"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Settlement is the table row for one match payout.
type Settlement struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	MatchID        string `gorm:"uniqueIndex;not null"`
	WinnerParty    string `gorm:"not null"`
	WinnerIdentity string
	Bet            int64  `gorm:"not null"`
	WinnerAmount   int64  `gorm:"not null"`
	PlatformFee    int64  `gorm:"not null"`
	Currency       string `gorm:"type:varchar(16)"`
	Status         string `gorm:"type:varchar(16);index;check:status IN ('pending','paid','failed','house')"`
	WinnerPaid     bool
	FeePaid        bool
	Attempts       int
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Ledger implements ports.SettlementLedger on postgres.
type Ledger struct {
	db *gorm.DB
}

var _ ports.SettlementLedger = (*Ledger)(nil)

// Open connects to dsn and migrates the settlements table.
func Open(dsn string) (*Ledger, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return NewLedger(db)
}

func NewLedger(db *gorm.DB) (*Ledger, error) {
	if err := db.AutoMigrate(&Settlement{}); err != nil {
		return nil, fmt.Errorf("failed to migrate settlements: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Save upserts by match id.
func (l *Ledger) Save(ctx context.Context, rec *ports.SettlementRecord) error {
	row := toRow(rec)
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save settlement %s: %w", rec.MatchID, err)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, matchID string) (*ports.SettlementRecord, error) {
	var row Settlement
	err := l.db.WithContext(ctx).Where("match_id = ?", matchID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ports.ErrSettlementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settlement %s: %w", matchID, err)
	}
	return fromRow(row), nil
}

func (l *Ledger) ListRetryable(ctx context.Context, maxAttempts int) ([]*ports.SettlementRecord, error) {
	var rows []Settlement
	err := l.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", string(ports.SettlementFailed), maxAttempts).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable settlements: %w", err)
	}
	out := make([]*ports.SettlementRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func toRow(rec *ports.SettlementRecord) Settlement {
	return Settlement{
		ID:             rec.ID,
		MatchID:        rec.MatchID,
		WinnerParty:    rec.WinnerParty,
		WinnerIdentity: rec.WinnerIdentity,
		Bet:            rec.Bet,
		WinnerAmount:   rec.WinnerAmount,
		PlatformFee:    rec.PlatformFee,
		Currency:       rec.Currency,
		Status:         string(rec.Status),
		WinnerPaid:     rec.WinnerPaid,
		FeePaid:        rec.FeePaid,
		Attempts:       rec.Attempts,
		LastError:      rec.LastError,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func fromRow(row Settlement) *ports.SettlementRecord {
	return &ports.SettlementRecord{
		ID:             row.ID,
		MatchID:        row.MatchID,
		WinnerParty:    row.WinnerParty,
		WinnerIdentity: row.WinnerIdentity,
		Bet:            row.Bet,
		WinnerAmount:   row.WinnerAmount,
		PlatformFee:    row.PlatformFee,
		Currency:       row.Currency,
		Status:         ports.SettlementStatus(row.Status),
		WinnerPaid:     row.WinnerPaid,
		FeePaid:        row.FeePaid,
		Attempts:       row.Attempts,
		LastError:      row.LastError,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
