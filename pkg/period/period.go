// Package period buckets timestamps into calendar periods used for cohorts and reports.
//
// Every bucket has a sortable label ("2021-01", "2021Q1", "2021-W05"), a compact integer
// code and an ordinal; the difference between two ordinals is the number of whole
// periods separating them.
package period

import (
	"fmt"
	"strings"
	"time"
)

type Period string

const (
	Day     Period = "day"
	Week    Period = "week"
	Month   Period = "month"
	Quarter Period = "quarter"
	Year    Period = "year"
)

// All lists the supported granularities, finest first.
var All = []Period{Day, Week, Month, Quarter, Year}

// Parse accepts the long names and the single-letter pandas-style aliases (D, W, M, Q, Y).
func Parse(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "d", "daily":
		return Day, nil
	case "week", "w", "weekly":
		return Week, nil
	case "month", "m", "monthly":
		return Month, nil
	case "quarter", "q", "quarterly":
		return Quarter, nil
	case "year", "y", "yearly", "annual":
		return Year, nil
	}
	return "", fmt.Errorf("unknown period %q (want day, week, month, quarter or year)", s)
}

func (p Period) String() string { return string(p) }

// Ordinal numbers consecutive periods; weeks start on Monday.
func (p Period) Ordinal(t time.Time) int {
	y, m, d := t.Date()
	switch p {
	case Day:
		return epochDay(y, m, d)
	case Week:
		// 1970-01-01 is a Thursday; shift so ordinals change on Mondays.
		return floorDiv(epochDay(y, m, d)+3, 7)
	case Month:
		return y*12 + int(m) - 1
	case Quarter:
		return y*4 + (int(m)-1)/3
	case Year:
		return y
	}
	panic(fmt.Sprintf("period: unsupported granularity %q", string(p)))
}

// Between returns how many periods separate from and to.
func (p Period) Between(from, to time.Time) int {
	return p.Ordinal(to) - p.Ordinal(from)
}

func (p Period) Label(t time.Time) string {
	y, m, d := t.Date()
	switch p {
	case Day:
		return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
	case Week:
		wy, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", wy, w)
	case Month:
		return fmt.Sprintf("%04d-%02d", y, int(m))
	case Quarter:
		return fmt.Sprintf("%04dQ%d", y, (int(m)-1)/3+1)
	case Year:
		return fmt.Sprintf("%04d", y)
	}
	panic(fmt.Sprintf("period: unsupported granularity %q", string(p)))
}

// Code is a compact sortable integer: year*10+quarter, year*100+month, year*100+ISO week,
// yyyymmdd or the bare year.
func (p Period) Code(t time.Time) int {
	y, m, d := t.Date()
	switch p {
	case Day:
		return y*10000 + int(m)*100 + d
	case Week:
		wy, w := t.ISOWeek()
		return wy*100 + w
	case Month:
		return y*100 + int(m)
	case Quarter:
		return y*10 + (int(m)-1)/3 + 1
	case Year:
		return y
	}
	panic(fmt.Sprintf("period: unsupported granularity %q", string(p)))
}

func epochDay(y int, m time.Month, d int) int {
	return int(floorDiv64(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix(), 86400))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorDiv64(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Valid reports whether p is one of All.
func (p Period) Valid() bool {
	for _, q := range All {
		if p == q {
			return true
		}
	}
	return false
}
