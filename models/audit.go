package models

import (
	"context"
	"time"

	"bitbucket.org/saluddigitalcl/farmacia_backend/config"
)

const (
	AuditStockReportOK      = "INFORMAR_STOCK_OK"
	AuditStockReportError   = "INFORMAR_STOCK_ERROR"
	AuditMovementReportOK   = "INFORMAR_MOVIMIENTO_OK"
	AuditMovementReportErr  = "INFORMAR_MOVIMIENTO_ERROR"
	AuditRulesReportOK      = "INFORMAR_REGLAS_OK"
	AuditRulesReportError   = "INFORMAR_REGLAS_ERROR"
	AuditBrokerLogin        = "CENABAST_LOGIN"
	AuditBrokerTokenRefresh = "CENABAST_REFRESH"
)

type AuditEntry struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;default:'system'" json:"username"`
	Action    string    `gorm:"index;size:50;not null" json:"action"`
	Detail    string    `gorm:"size:500" json:"detail"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// CreateAudit writes a row and never fails the caller. Audit is best effort.
func CreateAudit(ctx context.Context, username string, action string, detail string) {
	db := config.GetDB()
	if db == nil {
		return
	}
	if username == "" {
		username = "system"
	}
	if len(detail) > 500 {
		detail = detail[:500]
	}
	entry := AuditEntry{Username: username, Action: action, Detail: detail}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		config.LogError(config.GetLogger(), "models", "CreateAudit", action, nil, err)
	}
}
