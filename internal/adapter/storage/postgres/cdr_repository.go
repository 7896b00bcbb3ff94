package postgres

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/ports"
)

// chargeDetailRecordRow is the persistence shape; the domain type stays free
// of gorm tags.
type chargeDetailRecordRow struct {
	SessionID        string `gorm:"primaryKey"`
	EVSEID           string `gorm:"index"`
	ProviderID       string
	Identification   string
	SessionStart     time.Time
	SessionEnd       time.Time
	ChargingStart    time.Time
	ChargingEnd      time.Time
	ConsumedEnergyWh int64
	MeterValueStart  float64
	MeterValueEnd    float64
	PartnerProductID string
	ReceivedAt       time.Time `gorm:"autoCreateTime"`
}

func (chargeDetailRecordRow) TableName() string { return "charge_detail_records" }

type CDRRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCDRRepository(db *gorm.DB, log *zap.Logger) ports.CDRArchive {
	return &CDRRepository{
		db:  db,
		log: log,
	}
}

func (r *CDRRepository) Save(ctx context.Context, cdr *domain.ChargeDetailRecord) error {
	row := toRow(cdr)
	result := r.db.WithContext(ctx).Save(&row)
	if result.Error != nil {
		r.log.Error("Failed to save charge detail record",
			zap.String("session_id", cdr.SessionID),
			zap.Error(result.Error),
		)
		return result.Error
	}
	return nil
}

func (r *CDRRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.ChargeDetailRecord, error) {
	var row chargeDetailRecordRow
	result := r.db.WithContext(ctx).First(&row, "session_id = ?", sessionID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	cdr := toDomain(&row)
	return &cdr, nil
}

func toRow(cdr *domain.ChargeDetailRecord) chargeDetailRecordRow {
	return chargeDetailRecordRow{
		SessionID:        cdr.SessionID,
		EVSEID:           string(cdr.EVSEID),
		ProviderID:       string(cdr.ProviderID),
		Identification:   cdr.Identification,
		SessionStart:     cdr.SessionStart,
		SessionEnd:       cdr.SessionEnd,
		ChargingStart:    cdr.ChargingStart,
		ChargingEnd:      cdr.ChargingEnd,
		ConsumedEnergyWh: cdr.ConsumedEnergyWh,
		MeterValueStart:  cdr.MeterValueStart,
		MeterValueEnd:    cdr.MeterValueEnd,
		PartnerProductID: cdr.PartnerProductID,
	}
}

func toDomain(row *chargeDetailRecordRow) domain.ChargeDetailRecord {
	return domain.ChargeDetailRecord{
		SessionID:        row.SessionID,
		EVSEID:           domain.EVSEID(row.EVSEID),
		ProviderID:       domain.ProviderID(row.ProviderID),
		Identification:   row.Identification,
		SessionStart:     row.SessionStart,
		SessionEnd:       row.SessionEnd,
		ChargingStart:    row.ChargingStart,
		ChargingEnd:      row.ChargingEnd,
		ConsumedEnergyWh: row.ConsumedEnergyWh,
		MeterValueStart:  row.MeterValueStart,
		MeterValueEnd:    row.MeterValueEnd,
		PartnerProductID: row.PartnerProductID,
	}
}
