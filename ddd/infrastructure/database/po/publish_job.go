package po

import "time"

// Publish job states.
const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// PublishJob is the ledger row recording one publish request end to end.
type PublishJob struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	JobID      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"job_id"`
	ItemID     string    `gorm:"type:varchar(32);index" json:"item_id"`
	Target     string    `gorm:"type:varchar(64);index;not null" json:"target"`
	SourcePath string    `gorm:"type:varchar(512);not null" json:"source_path"`
	Mime       string    `gorm:"type:varchar(128)" json:"mime"`
	Status     string    `gorm:"type:varchar(16);index;not null" json:"status"`
	Version    int64     `gorm:"index" json:"version,omitempty"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PublishJob) TableName() string {
	return "publish_jobs"
}
