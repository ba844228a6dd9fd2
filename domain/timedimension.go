package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Granularity is the bucket size applied to a time dimension.
type Granularity string

const (
	GranularitySecond  Granularity = "second"
	GranularityMinute  Granularity = "minute"
	GranularityHour    Granularity = "hour"
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

var validGranularities = map[Granularity]bool{
	GranularitySecond: true, GranularityMinute: true, GranularityHour: true,
	GranularityDay: true, GranularityWeek: true, GranularityMonth: true,
	GranularityQuarter: true, GranularityYear: true,
}

// relativeRangePattern matches the relative date phrases the server
// understands, e.g. "today", "this month", "last 7 days".
var relativeRangePattern = regexp.MustCompile(
	`^(?i)(today|yesterday|tomorrow|(this|last|next) (day|week|month|quarter|year)|(last|next) \d+ (day|week|month|quarter|year)s?|from \d+ (day|week|month|quarter|year)s? ago to now)$`)

// dateLayouts are the accepted formats for absolute range endpoints.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	time.RFC3339,
}

// DateRange is either a relative phrase ("last 7 days") or an absolute
// [start, end] pair. Exactly one representation is set.
type DateRange struct {
	Relative   string
	Start, End string
}

// RelativeRange builds a DateRange from a relative phrase.
func RelativeRange(phrase string) DateRange { return DateRange{Relative: phrase} }

// AbsoluteRange builds a DateRange from explicit start and end dates.
func AbsoluteRange(start, end string) DateRange { return DateRange{Start: start, End: end} }

// Validate checks the range is well-formed: a recognized relative phrase, or
// an absolute pair with parseable dates and start <= end.
func (r DateRange) Validate() error {
	if r.Relative != "" {
		if r.Start != "" || r.End != "" {
			return ErrValidation("date_range: relative phrase and absolute pair are mutually exclusive")
		}
		if !relativeRangePattern.MatchString(strings.TrimSpace(r.Relative)) {
			return ErrValidation("date_range: unrecognized relative phrase %q", r.Relative)
		}
		return nil
	}
	if r.Start == "" || r.End == "" {
		return ErrValidation("date_range: both start and end are required")
	}
	start, err := parseDate(r.Start)
	if err != nil {
		return ErrValidation("date_range: invalid start %q", r.Start)
	}
	end, err := parseDate(r.End)
	if err != nil {
		return ErrValidation("date_range: invalid end %q", r.End)
	}
	if start.After(end) {
		return ErrValidation("date_range: start %q is after end %q", r.Start, r.End)
	}
	return nil
}

// MarshalJSON serializes a relative range as a string and an absolute range
// as a two-element array, matching the server's wire format.
func (r DateRange) MarshalJSON() ([]byte, error) {
	if r.Relative != "" {
		return json.Marshal(r.Relative)
	}
	return json.Marshal([2]string{r.Start, r.End})
}

// UnmarshalJSON accepts both wire representations.
func (r *DateRange) UnmarshalJSON(data []byte) error {
	var phrase string
	if err := json.Unmarshal(data, &phrase); err == nil {
		*r = DateRange{Relative: phrase}
		return nil
	}
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("date range must be a string or a [start, end] pair")
	}
	if len(pair) != 2 {
		return fmt.Errorf("date range pair must have exactly 2 elements, got %d", len(pair))
	}
	*r = DateRange{Start: pair[0], End: pair[1]}
	return nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// TimeDimension restricts and buckets a query along a time dimension.
// DateRange and CompareDateRange are mutually exclusive.
type TimeDimension struct {
	Dimension        string      `json:"dimension"`
	Granularity      Granularity `json:"granularity,omitempty"`
	DateRange        *DateRange  `json:"dateRange,omitempty"`
	CompareDateRange []DateRange `json:"compareDateRange,omitempty"`
}

// Validate checks the time dimension is well-formed.
func (d TimeDimension) Validate() error {
	if d.Dimension == "" {
		return ErrValidation("time_dimension: dimension is required")
	}
	if d.Granularity != "" && !validGranularities[d.Granularity] {
		return ErrValidation("time_dimension %s: unknown granularity %q", d.Dimension, d.Granularity)
	}
	if d.DateRange != nil && len(d.CompareDateRange) > 0 {
		return ErrValidation("time_dimension %s: dateRange and compareDateRange are mutually exclusive", d.Dimension)
	}
	if d.DateRange != nil {
		if err := d.DateRange.Validate(); err != nil {
			return ErrValidation("time_dimension %s: %v", d.Dimension, err)
		}
	}
	for i, r := range d.CompareDateRange {
		if err := r.Validate(); err != nil {
			return ErrValidation("time_dimension %s: compareDateRange[%d]: %v", d.Dimension, i, err)
		}
	}
	return nil
}
