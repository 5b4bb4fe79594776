package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	errMissingDate   = errors.New("start and end dates are required")
	errInvalidDate   = errors.New("dates must be formatted as YYYY-MM-DD")
	errStartAfterEnd = errors.New("start date is after end date")
)

// dateRange is a whole-day range in one zone: From is the first instant, Until the
// first instant after the last day.
type dateRange struct {
	From  time.Time
	Until time.Time
}

// parseDateRange interprets both dates as inclusive calendar days in loc.
func parseDateRange(start, end string, loc *time.Location) (dateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return dateRange{}, errMissingDate
	}
	s, err := time.ParseInLocation(dateLayout, start, loc)
	if err != nil {
		return dateRange{}, fmt.Errorf("%w: %q", errInvalidDate, start)
	}
	e, err := time.ParseInLocation(dateLayout, end, loc)
	if err != nil {
		return dateRange{}, fmt.Errorf("%w: %q", errInvalidDate, end)
	}
	if s.After(e) {
		return dateRange{}, errStartAfterEnd
	}
	return dateRange{From: s, Until: e.AddDate(0, 0, 1)}, nil
}

// StartLabel is the first day as YYYY-MM-DD.
func (r dateRange) StartLabel() string {
	return r.From.Format(dateLayout)
}

// EndLabel is the last included day as YYYY-MM-DD.
func (r dateRange) EndLabel() string {
	return r.Until.AddDate(0, 0, -1).Format(dateLayout)
}

// monthToDate returns the first of now's month and now's day, both in now's zone.
func monthToDate(now time.Time) (string, string) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.Format(dateLayout), now.Format(dateLayout)
}

// describeDateError turns a range parsing error into a message for the page.
func describeDateError(err error) string {
	switch {
	case errors.Is(err, errMissingDate):
		return "開始日と終了日を指定してください。"
	case errors.Is(err, errStartAfterEnd):
		return "開始日が終了日より後です。"
	case errors.Is(err, errInvalidDate):
		return "日付は YYYY-MM-DD 形式で指定してください。"
	default:
		return err.Error()
	}
}
