package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// excelEpoch is day zero of the Excel serial date system.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// excelSerialFloor: spreadsheet cells below this are treated as plain
// numbers, not dates. 40000 corresponds to mid-2009.
const excelSerialFloor = 40000

// dateLayouts are tried in order for textual dates.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	time.RFC3339,
}

// ParseDate converts a raw date cell into a day-precision time. It accepts
// Excel serial numbers, ISO dates, German DD.MM.YYYY, and a handful of
// generic layouts.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	// Excel serial number, e.g. 45000 from a spreadsheet cell.
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial > excelSerialFloor {
			return excelEpoch.AddDate(0, 0, int(serial)), nil
		}
		return time.Time{}, fmt.Errorf("numeric value %q is not a plausible date serial", s)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
