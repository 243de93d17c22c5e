package model

import "time"

// CronJobLog records one scheduled job run for operational visibility
type CronJobLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	JobName    string    `gorm:"type:varchar(100);not null;index" json:"job_name"`
	Status     string    `gorm:"type:varchar(20);not null" json:"status"` // started, completed, failed
	Message    string    `gorm:"type:text" json:"message"`
	DurationMs int64     `json:"duration_ms"`
}

// TableName specifies the table name for CronJobLog
func (CronJobLog) TableName() string {
	return "cron_job_logs"
}
