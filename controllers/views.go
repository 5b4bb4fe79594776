package controllers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/viewlog/models"
	"github.com/cppla/viewlog/report"
)

const displayLayout = "2006-01-02 15:04"

// fetchRecords returns the rows whose timestamp falls in r, oldest first.
// Bounds are compared in UTC, the zone rows are stored in.
func fetchRecords(ctx context.Context, db *gorm.DB, r dateRange) ([]models.ViewRecord, error) {
	var records []models.ViewRecord
	err := db.WithContext(ctx).
		Where("ts >= ? AND ts < ?", r.From.UTC(), r.Until.UTC()).
		Order("ts ASC").
		Order("id ASC").
		Find(&records).Error
	return records, err
}

// toReportRows formats records for display in loc.
func toReportRows(records []models.ViewRecord, loc *time.Location) []report.Row {
	rows := make([]report.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, report.Row{
			When:        rec.Timestamp.In(loc).Format(displayLayout),
			Affiliation: rec.Affiliation,
			Name:        rec.Name,
		})
	}
	return rows
}
