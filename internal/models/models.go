package models

import (
	"math"
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ReportUpload is the resumable unit of work: one uploaded monthly report.
// Its high-water mark is the highest page number durably persisted so far.
type ReportUpload struct {
	ID        int64     `db:"id" json:"id"`
	FileName  string    `db:"file_name" json:"file_name"`
	Year      int       `db:"year" json:"year"`
	Month     int       `db:"month" json:"month"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CrimeHead is a stable identifier for a free-text crime category label,
// created on first occurrence and reused by exact name match thereafter.
type CrimeHead struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Category string `db:"category" json:"category"`
}

// DefaultHeadCategory is assigned to crime heads created on first sight.
const DefaultHeadCategory = "general"

// StatRow is one extracted statistics row: a crime head label plus the
// fixed set of numeric measures for that head on one page.
type StatRow struct {
	CrimeHead      string `json:"crime_head"`
	Registered     int    `json:"registered"`
	Detected       int    `json:"detected"`
	Pending0to3    int    `json:"pending_0_3"`
	Pending3to6    int    `json:"pending_3_6"`
	Pending6to12   int    `json:"pending_6_12"`
	PendingOver1Yr int    `json:"pending_1_year"`
}

// DetectionPercent derives detected/registered as a percentage rounded to
// two decimals. It is 0 when nothing was registered; the source data never
// supplies it.
func (r StatRow) DetectionPercent() float64 {
	return ratePercent(r.Detected, r.Registered)
}

// ConvictionSummary holds the decided/convicted/acquitted counts for a page.
type ConvictionSummary struct {
	Decided   int `json:"decided"`
	Convicted int `json:"convicted"`
	Acquitted int `json:"acquitted"`
}

// Normalize infers the decided count as convicted+acquitted when the source
// left it at zero but the components are positive.
func (c *ConvictionSummary) Normalize() {
	if c.Decided == 0 && c.Convicted+c.Acquitted > 0 {
		c.Decided = c.Convicted + c.Acquitted
	}
}

// ConvictionPercent derives convicted/decided as a percentage rounded to
// two decimals, 0 when nothing was decided.
func (c ConvictionSummary) ConvictionPercent() float64 {
	return ratePercent(c.Convicted, c.Decided)
}

func ratePercent(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return math.Round(float64(num)/float64(den)*100*100) / 100
}

// PageImage is one rendered report page. It is consumed once by the
// inference client and then discarded, never persisted.
type PageImage struct {
	PageNumber int
	PNG        []byte
	Width      int
	Height     int
}

// PageExtraction is the canonical result for one page. Exactly one exists
// per page, even on failure: Error is set instead of Rows, and RawResponse
// keeps the model output for diagnostics when it could not be parsed.
type PageExtraction struct {
	PageNumber  int                `json:"page_number"`
	Rows        []StatRow          `json:"rows,omitempty"`
	Conviction  *ConvictionSummary `json:"conviction,omitempty"`
	RawResponse string             `json:"raw_response,omitempty"`
	Error       string             `json:"error,omitempty"`
	Stored      bool               `json:"stored"`
	StoreError  string             `json:"store_error,omitempty"`
}

// EventType identifies a stream event emitted while a report is processed.
type EventType string

const (
	EventStart    EventType = "start"
	EventPage     EventType = "page"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// StreamEvent is one entry of the ordered event sequence sent to the caller.
// Page events carry the embedded extraction fields; start/complete/error
// events leave it nil.
type StreamEvent struct {
	Type           EventType `json:"type"`
	TotalPages     int       `json:"total_pages,omitempty"`
	TotalProcessed int       `json:"total_processed,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	*PageExtraction
}

// CrimeStatView is one dashboard row: persisted measures joined with the
// crime head label.
type CrimeStatView struct {
	CrimeHead        string  `json:"crime_head"`
	Registered       int     `json:"registered"`
	Detected         int     `json:"detected"`
	DetectionPercent float64 `json:"detection_percent"`
	PageNumber       int     `json:"page_number"`
}

// PendingView is one dashboard row of pending-case age buckets per head.
type PendingView struct {
	CrimeHead      string `json:"crime_head"`
	Pending0to3    int    `json:"pending_0_3"`
	Pending3to6    int    `json:"pending_3_6"`
	Pending6to12   int    `json:"pending_6_12"`
	PendingOver1Yr int    `json:"pending_1_year"`
}

// ConvictionView is the persisted conviction summary for a report.
type ConvictionView struct {
	Decided           int     `json:"decided"`
	Convicted         int     `json:"convicted"`
	Acquitted         int     `json:"acquitted"`
	ConvictionPercent float64 `json:"conviction_percent"`
}

// ReportData bundles everything the dashboard shows for one report.
type ReportData struct {
	ReportID      int64           `json:"report_id"`
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	CrimeStats    []CrimeStatView `json:"crime_statistics"`
	PendingByHead []PendingView   `json:"pending_by_head"`
	Conviction    *ConvictionView `json:"conviction_stats"`
}

// RunSummary aggregates the outcome of one pipeline run.
type RunSummary struct {
	TotalPages  int              `json:"total_pages"`
	Processed   int              `json:"processed"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	ResumedFrom int              `json:"resumed_from"`
	Pages       []PageExtraction `json:"pages"`
}
