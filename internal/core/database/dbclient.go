package db

import (
	"context"

	"github.com/pranay-lamse/crimedigest/internal/models"
)

// DbClient defines all persistence operations the service needs.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) (err error)
	GetUserByEmail(ctx context.Context, email string) (user *models.User, err error)

	CreateReport(ctx context.Context, report *models.ReportUpload) error
	GetLatestReport(ctx context.Context) (*models.ReportUpload, error)

	// HighWaterMark returns the highest page number durably persisted for a
	// report, 0 when none. It drives restart-safe resumption.
	HighWaterMark(ctx context.Context, reportID int64) (int, error)

	// PurgeReport removes every fact row a previous attempt left for the
	// report. Run only when the high-water mark is 0.
	PurgeReport(ctx context.Context, reportID int64) error

	// PersistPage writes one page's extraction inside a single transaction:
	// dimension resolution, statistics rows, pending-case rows, and the
	// conviction summary all commit together or not at all.
	PersistPage(ctx context.Context, reportID int64, page *models.PageExtraction, year, month int) error

	LatestReportData(ctx context.Context) (*models.ReportData, error)

	Close() error
}
