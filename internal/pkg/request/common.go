package request

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ByIDRequest is a common struct for endpoints that require an ID path parameter.
type ByIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// DayQuery selects one calendar day, interpreted in the given IANA zone (UTC when empty).
type DayQuery struct {
	Date     string `form:"date" binding:"required"`
	TimeZone string `form:"tz"`
}

// Day parses the query into midnight of the requested day.
func (q *DayQuery) Day() (time.Time, error) {
	return ParseDate(q.Date, q.TimeZone)
}

// ParseDate parses a YYYY-MM-DD date at midnight in the named zone.
func ParseDate(date, tz string) (time.Time, error) {
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown time zone %q", tz)
		}
		loc = l
	}
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be formatted as %s", DateLayout)
	}
	return d, nil
}
