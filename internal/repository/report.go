package repository

import (
	"context"

	"eminence/internal/models"

	"gorm.io/gorm"
)

// ReportRepository stores user reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	ListPending(ctx context.Context, limit int) ([]*models.Report, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	return translateError(r.db.WithContext(ctx).Create(report).Error, "Report", report.ID)
}

func (r *reportRepository) ListPending(ctx context.Context, limit int) ([]*models.Report, error) {
	var out []*models.Report
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ReportStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, translateError(err, "Report", "")
}
