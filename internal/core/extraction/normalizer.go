package extraction

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pranay-lamse/crimedigest/internal/models"
)

// ErrJSONParse is the error marker recorded on a page whose model output
// was not valid JSON. Such pages keep the raw text for diagnostics and are
// never retried.
const ErrJSONParse = "JSON parsing failed"

// flexCount tolerates the model emitting counts as numbers, quoted
// numbers, or null. Anything absent or unreadable counts as zero.
type flexCount int

func (f *flexCount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(s, ",", "")
	n, err := strconv.Atoi(s)
	if err != nil {
		if x, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			*f = flexCount(int(x))
			return nil
		}
		*f = 0
		return nil
	}
	*f = flexCount(n)
	return nil
}

type rawStatRow struct {
	CrimeHead      string    `json:"crime_head"`
	Registered     flexCount `json:"registered"`
	Detected       flexCount `json:"detected"`
	Pending0to3    flexCount `json:"pending_0_3"`
	Pending3to6    flexCount `json:"pending_3_6"`
	Pending6to12   flexCount `json:"pending_6_12"`
	PendingOver1Yr flexCount `json:"pending_1_year"`
}

type rawConviction struct {
	Decided   flexCount `json:"decided"`
	Convicted flexCount `json:"convicted"`
	Acquitted flexCount `json:"acquitted"`
}

type pageEnvelope struct {
	Rows       []rawStatRow   `json:"rows"`
	Conviction *rawConviction `json:"conviction"`
}

// Normalize reshapes the raw text of one inference response into the
// canonical per-page record. Heterogeneous envelopes collapse in order:
// a bare list is wrapped as the rows field, an object with a rows key is
// promoted, and any other object is taken as already canonical. Rows
// without a crime head label are dropped; they cannot be attributed to a
// dimension and are not an error.
func Normalize(pageNumber int, raw string) models.PageExtraction {
	record := models.PageExtraction{PageNumber: pageNumber}

	trimmed := bytes.TrimSpace([]byte(raw))
	if !json.Valid(trimmed) {
		record.RawResponse = raw
		record.Error = ErrJSONParse
		return record
	}

	var env pageEnvelope
	if len(trimmed) > 0 && trimmed[0] == '[' {
		// Bare list of rows: wrap it.
		if err := json.Unmarshal(trimmed, &env.Rows); err != nil {
			record.RawResponse = raw
			record.Error = ErrJSONParse
			return record
		}
	} else if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &env); err != nil {
			record.RawResponse = raw
			record.Error = ErrJSONParse
			return record
		}
	}
	// Any other valid JSON scalar carries no rows: an empty page.

	for _, rr := range env.Rows {
		name := strings.TrimSpace(rr.CrimeHead)
		if name == "" {
			continue
		}
		record.Rows = append(record.Rows, models.StatRow{
			CrimeHead:      name,
			Registered:     int(rr.Registered),
			Detected:       int(rr.Detected),
			Pending0to3:    int(rr.Pending0to3),
			Pending3to6:    int(rr.Pending3to6),
			Pending6to12:   int(rr.Pending6to12),
			PendingOver1Yr: int(rr.PendingOver1Yr),
		})
	}

	if env.Conviction != nil {
		cs := &models.ConvictionSummary{
			Decided:   int(env.Conviction.Decided),
			Convicted: int(env.Conviction.Convicted),
			Acquitted: int(env.Conviction.Acquitted),
		}
		cs.Normalize()
		record.Conviction = cs
	}

	return record
}
