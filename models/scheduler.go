package models

import "time"

const (
	TaskKindStock       = "STOCK"
	TaskKindMovementIn  = "MOVIMIENTO_ENTRADA"
	TaskKindMovementOut = "MOVIMIENTO_SALIDA"
	TaskKindRules       = "REGLAS"
)

const (
	TriggerModeManual    = "MANUAL"
	TriggerModeAutomatic = "AUTOMATICO"
)

const (
	ExecStatusPending   = "PENDIENTE"
	ExecStatusRunning   = "EJECUTANDO"
	ExecStatusCompleted = "COMPLETADO"
	ExecStatusError     = "ERROR"
)

// SchedulerTask is a recurring submission job. RunTime is "HH:MM" local time
// and Weekdays a csv of 1..7 (1=Monday, 7=Sunday).
type SchedulerTask struct {
	ID           uint       `gorm:"primary_key" json:"id"`
	Name         string     `gorm:"size:100;not null" json:"name"`
	Kind         string     `gorm:"size:50;not null" json:"kind"`
	Active       bool       `gorm:"default:true" json:"active"`
	RunTime      string     `gorm:"size:5;not null" json:"run_time"`
	Weekdays     string     `gorm:"size:20;default:'1,2,3,4,5'" json:"weekdays"`
	RelationId   int        `json:"relation_id"`
	PurchaseType string     `gorm:"size:1" json:"purchase_type"`
	LastRunAt    *time.Time `json:"last_run_at"`
	NextRunAt    *time.Time `gorm:"index" json:"next_run_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TaskExecutionLog records one attempt at a task, manual or automatic.
// TaskId is nil for ad-hoc manual runs.
type TaskExecutionLog struct {
	ID           uint       `gorm:"primary_key" json:"id"`
	TaskId       *uint      `gorm:"index" json:"task_id"`
	Kind         string     `gorm:"index;size:50;not null" json:"kind"`
	Mode         string     `gorm:"size:20;default:'MANUAL'" json:"mode"`
	Status       string     `gorm:"size:20;default:'PENDIENTE'" json:"status"`
	StartedAt    time.Time  `gorm:"autoCreateTime;index" json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	ItemsSent    int        `gorm:"default:0" json:"items_sent"`
	ItemsError   int        `gorm:"default:0" json:"items_error"`
	Message      string     `gorm:"type:text" json:"message"`
	ResponseJSON []byte     `gorm:"type:json" json:"response"`
	Username     string     `gorm:"size:100;default:'system'" json:"username"`
}
