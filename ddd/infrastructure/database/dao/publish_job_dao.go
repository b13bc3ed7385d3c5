package dao

import (
	"context"

	"gorm.io/gorm"

	"signage-service/ddd/infrastructure/database/po"
)

// PublishJobDAO records publish jobs in the ledger. Every method is a no-op
// when the ledger is disabled, so callers never branch on configuration.
type PublishJobDAO struct {
	db *gorm.DB
}

func NewPublishJobDAO(db *gorm.DB) *PublishJobDAO {
	return &PublishJobDAO{db: db}
}

func (d *PublishJobDAO) Create(ctx context.Context, job *po.PublishJob) error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.WithContext(ctx).Create(job).Error
}

func (d *PublishJobDAO) UpdateStatus(ctx context.Context, jobID, status, errMsg string) error {
	if d == nil || d.db == nil {
		return nil
	}
	updates := map[string]any{"status": status, "error": errMsg}
	return d.db.WithContext(ctx).Model(&po.PublishJob{}).Where("job_id = ?", jobID).Updates(updates).Error
}

func (d *PublishJobDAO) MarkDone(ctx context.Context, jobID, itemID string, version int64) error {
	if d == nil || d.db == nil {
		return nil
	}
	updates := map[string]any{"status": po.JobStatusDone, "item_id": itemID, "version": version}
	return d.db.WithContext(ctx).Model(&po.PublishJob{}).Where("job_id = ?", jobID).Updates(updates).Error
}

func (d *PublishJobDAO) FindByJobID(ctx context.Context, jobID string) (*po.PublishJob, error) {
	if d == nil || d.db == nil {
		return nil, gorm.ErrRecordNotFound
	}
	var job po.PublishJob
	if err := d.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (d *PublishJobDAO) Recent(ctx context.Context, limit int) ([]po.PublishJob, error) {
	if d == nil || d.db == nil {
		return nil, nil
	}
	var jobs []po.PublishJob
	err := d.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}
