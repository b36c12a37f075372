// Package validation implements the submit-time guard for the student
// registration form.
//
// The guard checks two fields, mobile and passout year, in that order and
// stops at the first failure. The failing rule's message is handed to a
// Notifier so the same code runs behind a browser alert, an HTTP response or
// a terminal.
package validation

import (
	"math"
	"strconv"
	"strings"
)

// Passout year bounds, inclusive. These are literals, not derived from the
// current date.
const (
	MinPassoutYear = 2000
	MaxPassoutYear = 2028
)

// MobileLength is the exact number of digits in a mobile number.
const MobileLength = 10

// User-facing messages. They are part of the form's contract and must not change.
const (
	MsgInvalidMobile      = "Enter a valid 10-digit mobile number!"
	MsgInvalidPassoutYear = "Enter a valid passout year between 2000 and 2028!"
)

// Form field names as submitted by the registration page.
const (
	FieldMobile      = "mobile"
	FieldPassoutYear = "passout_year"
)

// Notifier receives the message of the first failing rule.
type Notifier func(message string)

// Result is the outcome of a single form check.
type Result struct {
	OK      bool   `json:"ok"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// Check applies the form rules and reports the first failure.
func Check(mobile, passoutYear string) Result {
	if !ValidMobile(mobile) {
		return Result{Field: FieldMobile, Message: MsgInvalidMobile}
	}
	year, ok := ParsePassoutYear(passoutYear)
	if !ok || !ValidPassoutYear(year) {
		return Result{Field: FieldPassoutYear, Message: MsgInvalidPassoutYear}
	}
	return Result{OK: true}
}

// CheckYear is Check for callers that already hold the year as a number.
func CheckYear(mobile string, passoutYear int) Result {
	if !ValidMobile(mobile) {
		return Result{Field: FieldMobile, Message: MsgInvalidMobile}
	}
	if !ValidPassoutYear(passoutYear) {
		return Result{Field: FieldPassoutYear, Message: MsgInvalidPassoutYear}
	}
	return Result{OK: true}
}

// ValidateForm reports whether submission may proceed. On rejection notify,
// if non-nil, is called exactly once with the failing rule's message.
func ValidateForm(mobile, passoutYear string, notify Notifier) bool {
	return deliver(Check(mobile, passoutYear), notify)
}

// ValidateYear is ValidateForm with a numeric passout year.
func ValidateYear(mobile string, passoutYear int, notify Notifier) bool {
	return deliver(CheckYear(mobile, passoutYear), notify)
}

func deliver(r Result, notify Notifier) bool {
	if !r.OK && notify != nil {
		notify(r.Message)
	}
	return r.OK
}

// ValidMobile reports whether s is exactly ten ASCII digits.
func ValidMobile(s string) bool {
	if len(s) != MobileLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ValidPassoutYear reports whether year lies in [MinPassoutYear, MaxPassoutYear].
func ValidPassoutYear(year int) bool {
	return year >= MinPassoutYear && year <= MaxPassoutYear
}

// ParsePassoutYear reads a year typed into the form. Surrounding whitespace
// is ignored. Integral decimals such as "2024.0" are read as the integer;
// fractions, NaN and infinities are rejected.
func ParsePassoutYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if year, err := strconv.Atoi(s); err == nil {
		return year, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
