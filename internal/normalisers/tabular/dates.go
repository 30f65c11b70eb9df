package tabular

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	domain.DateLayout,
}

// msDate matches the /Date(1518685950940+0000)/ form used by the API.
var msDate = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)

// parseDate recognises the supported date and timestamp forms.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if m := msDate.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		t := time.UnixMilli(ms).UTC()
		if m[2] != "" {
			t = t.In(fixedZone(m[2]))
		}
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// fixedZone builds a zone from a +hhmm offset.
func fixedZone(offset string) *time.Location {
	hours, _ := strconv.Atoi(offset[1:3])
	minutes, _ := strconv.Atoi(offset[3:5])
	secs := hours*3600 + minutes*60
	if offset[0] == '-' {
		secs = -secs
	}
	return time.FixedZone(offset, secs)
}

// normaliseDates rewrites every column in which more than half of the
// non-missing string values parse as dates. Parsed values become
// YYYY-MM-DD and unparseable strings become missing.
func normaliseDates(t *domain.FlatTable) {
	for _, col := range t.Columns {
		var total, parsed int
		for _, row := range t.Rows {
			s, ok := row[col].(string)
			if !ok {
				continue
			}
			total++
			if _, ok := parseDate(s); ok {
				parsed++
			}
		}
		if total == 0 || parsed*2 <= total {
			continue
		}
		for _, row := range t.Rows {
			s, ok := row[col].(string)
			if !ok {
				continue
			}
			if d, ok := parseDate(s); ok {
				row[col] = d.Format(domain.DateLayout)
			} else {
				delete(row, col)
			}
		}
	}
}
