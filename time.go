package linearql

// time.go has custom scalars for points in time and calendar dates

import (
	"fmt"
	"strings"
	"time"
)

// Time is the DateTime scalar of the Linear API
type Time time.Time

// Date is the TimelessDate scalar (eg an issue's due date) - a day with no time or zone
type Date time.Time

const (
	timeFormat = time.RFC3339Nano // Linear uses ISO-8601 with milliseconds
	dateFormat = time.DateOnly
)

// GraphQLType gives the name of the scalar in the Linear schema
func (Time) GraphQLType() string { return "DateTime" }

// GraphQLType gives the name of the scalar in the Linear schema
func (Date) GraphQLType() string { return "TimelessDate" }

// UnmarshalJSON decodes a time from a JSON string (null leaves the Time unchanged)
func (pt *Time) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	tmp, err := time.Parse(timeFormat, strings.Trim(s, `"`))
	if err != nil {
		return fmt.Errorf("%w decoding DateTime", err)
	}
	*pt = Time(tmp)
	return nil
}

// MarshalJSON encodes a Time as a JSON string
func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(timeFormat) + `"`), nil
}

func (t Time) String() string {
	return time.Time(t).Format(timeFormat)
}

// UnmarshalJSON decodes a date from a JSON string (null leaves the Date unchanged)
func (pd *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	tmp, err := time.Parse(dateFormat, strings.Trim(s, `"`))
	if err != nil {
		return fmt.Errorf("%w decoding TimelessDate", err)
	}
	*pd = Date(tmp)
	return nil
}

// MarshalJSON encodes a Date as a JSON string
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d Date) String() string {
	return time.Time(d).Format(dateFormat)
}

// Time returns the standard library time
func (t Time) Time() time.Time { return time.Time(t) }

// Time returns midnight UTC at the start of the date
func (d Date) Time() time.Time { return time.Time(d) }
