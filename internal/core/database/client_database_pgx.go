package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/pranay-lamse/crimedigest/internal/config"
	"github.com/pranay-lamse/crimedigest/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Implementing the db interface for user

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()), COALESCE($6, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.FirstName, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Implementing the db interface for report runs

func (c *DatabaseClient) CreateReport(ctx context.Context, report *models.ReportUpload) error {
	if report == nil {
		return errors.New("nil report")
	}
	const q = `
		INSERT INTO report_uploads (file_name, year, month)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return c.db.QueryRowContext(ctx, q, report.FileName, report.Year, report.Month).
		Scan(&report.ID, &report.CreatedAt)
}

func (c *DatabaseClient) GetLatestReport(ctx context.Context) (*models.ReportUpload, error) {
	const q = `
		SELECT id, file_name, year, month, created_at
		FROM report_uploads
		ORDER BY id DESC
		LIMIT 1
	`
	var r models.ReportUpload
	err := c.db.QueryRowContext(ctx, q).Scan(&r.ID, &r.FileName, &r.Year, &r.Month, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// HighWaterMark returns MAX(page_number) among persisted statistics rows
// for the report, 0 if none exist yet.
func (c *DatabaseClient) HighWaterMark(ctx context.Context, reportID int64) (int, error) {
	const q = `
		SELECT COALESCE(MAX(page_number), 0)
		FROM crime_statistics
		WHERE report_upload_id = $1
	`
	var mark int
	if err := c.db.QueryRowContext(ctx, q, reportID).Scan(&mark); err != nil {
		return 0, err
	}
	return mark, nil
}

// PurgeReport deletes all fact rows for the report across the three fact
// tables in one transaction. Dimension rows are shared and stay.
func (c *DatabaseClient) PurgeReport(ctx context.Context, reportID int64) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM conviction_stats WHERE report_upload_id = $1`,
		`DELETE FROM pending_cases_by_head WHERE report_upload_id = $1`,
		`DELETE FROM crime_statistics WHERE report_upload_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, reportID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// PersistPage writes one page atomically: every statistics row, every
// pending-cases row, and the conviction summary commit together. On any
// failure the whole page rolls back and the resume mark does not advance.
func (c *DatabaseClient) PersistPage(ctx context.Context, reportID int64, page *models.PageExtraction, year, month int) error {
	if page == nil {
		return errors.New("nil page")
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	resolver := txHeadResolver(ctx, tx)

	const statQ = `
		INSERT INTO crime_statistics
			(report_upload_id, crime_head_id, registered, detected, detection_percent, year, month, page_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	const pendingQ = `
		INSERT INTO pending_cases_by_head
			(report_upload_id, crime_head_id, month_0_3, month_3_6, month_6_12, above_1_year, page_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i := range page.Rows {
		row := &page.Rows[i]

		headID, err := resolver.resolve(ctx, row.CrimeHead, models.DefaultHeadCategory)
		if err != nil {
			_ = tx.Rollback()
			return err
		}

		if _, err := tx.ExecContext(ctx, statQ,
			reportID, headID, row.Registered, row.Detected, row.DetectionPercent(),
			year, month, page.PageNumber,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert statistics for %q: %w", row.CrimeHead, err)
		}

		if _, err := tx.ExecContext(ctx, pendingQ,
			reportID, headID, row.Pending0to3, row.Pending3to6, row.Pending6to12, row.PendingOver1Yr,
			page.PageNumber,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert pending cases for %q: %w", row.CrimeHead, err)
		}
	}

	if page.Conviction != nil {
		const convQ = `
			INSERT INTO conviction_stats
				(report_upload_id, decided, convicted, acquitted, conviction_percent, page_number)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		cs := page.Conviction
		if _, err := tx.ExecContext(ctx, convQ,
			reportID, cs.Decided, cs.Convicted, cs.Acquitted, cs.ConvictionPercent(),
			page.PageNumber,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert conviction stats: %w", err)
		}
	}

	return tx.Commit()
}

// txHeadResolver binds the dimension lookup/insert steps to the page
// transaction. ON CONFLICT DO NOTHING makes the creation race safe: the
// loser gets no row back and re-selects the winner's identifier.
func txHeadResolver(_ context.Context, tx *sql.Tx) headResolver {
	return headResolver{
		find: func(ctx context.Context, name string) (int64, bool, error) {
			const q = `SELECT id FROM crime_heads WHERE name = $1`
			var id int64
			err := tx.QueryRowContext(ctx, q, name).Scan(&id)
			if err == sql.ErrNoRows {
				return 0, false, nil
			}
			if err != nil {
				return 0, false, err
			}
			return id, true, nil
		},
		insert: func(ctx context.Context, name, category string) (int64, bool, error) {
			const q = `
				INSERT INTO crime_heads (name, category)
				VALUES ($1, $2)
				ON CONFLICT (name) DO NOTHING
				RETURNING id
			`
			var id int64
			err := tx.QueryRowContext(ctx, q, name, category).Scan(&id)
			if err == sql.ErrNoRows {
				return 0, false, nil
			}
			if err != nil {
				return 0, false, err
			}
			return id, true, nil
		},
	}
}

// LatestReportData assembles the dashboard payload for the newest report:
// statistics and pending buckets joined with head names, plus the latest
// conviction row.
func (c *DatabaseClient) LatestReportData(ctx context.Context) (*models.ReportData, error) {
	report, err := c.GetLatestReport(ctx)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, nil
	}

	data := &models.ReportData{ReportID: report.ID, Year: report.Year, Month: report.Month}

	const statsQ = `
		SELECT ch.name, cs.registered, cs.detected, cs.detection_percent, cs.page_number
		FROM crime_statistics cs
		JOIN crime_heads ch ON cs.crime_head_id = ch.id
		WHERE cs.report_upload_id = $1
		ORDER BY cs.page_number, ch.name
	`
	rows, err := c.db.QueryContext(ctx, statsQ, report.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var v models.CrimeStatView
		if err := rows.Scan(&v.CrimeHead, &v.Registered, &v.Detected, &v.DetectionPercent, &v.PageNumber); err != nil {
			return nil, err
		}
		data.CrimeStats = append(data.CrimeStats, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const pendingQ = `
		SELECT ch.name, pc.month_0_3, pc.month_3_6, pc.month_6_12, pc.above_1_year
		FROM pending_cases_by_head pc
		JOIN crime_heads ch ON pc.crime_head_id = ch.id
		WHERE pc.report_upload_id = $1
		ORDER BY ch.name
	`
	prows, err := c.db.QueryContext(ctx, pendingQ, report.ID)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var v models.PendingView
		if err := prows.Scan(&v.CrimeHead, &v.Pending0to3, &v.Pending3to6, &v.Pending6to12, &v.PendingOver1Yr); err != nil {
			return nil, err
		}
		data.PendingByHead = append(data.PendingByHead, v)
	}
	if err := prows.Err(); err != nil {
		return nil, err
	}

	const convQ = `
		SELECT decided, convicted, acquitted, conviction_percent
		FROM conviction_stats
		WHERE report_upload_id = $1
		ORDER BY id DESC
		LIMIT 1
	`
	var cv models.ConvictionView
	err = c.db.QueryRowContext(ctx, convQ, report.ID).Scan(&cv.Decided, &cv.Convicted, &cv.Acquitted, &cv.ConvictionPercent)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil {
		data.Conviction = &cv
	}

	return data, nil
}
