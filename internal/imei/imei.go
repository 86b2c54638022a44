// Package imei validates and masks device identifiers.
//
// Structural validation (exactly 15 digits once spaces and dashes are
// removed) and the Luhn checksum are independent checks: callers may accept
// a structurally valid IMEI whose checksum fails, but structural validation
// is never optional.
package imei

import (
	"errors"
	"strings"
)

const Length = 15

// visibleDigits is how many trailing digits Mask leaves readable.
const visibleDigits = 4

var (
	ErrFormat   = errors.New("imei must be exactly 15 digits")
	ErrChecksum = errors.New("imei checksum mismatch")
)

type Result struct {
	Valid bool  `json:"valid"`
	Err   error `json:"-"`
}

// ErrorMessage is the JSON-friendly form of Err.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Clean strips spaces and dashes.
func Clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r == ' ' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func IsFormat(raw string) bool {
	s := Clean(raw)
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Luhn reports whether the last digit of a cleaned 15-digit IMEI is the
// check digit of the preceding 14. Non-conforming input is false.
func Luhn(raw string) bool {
	if !IsFormat(raw) {
		return false
	}
	s := Clean(raw)
	body := s[:Length-1]

	sum := 0
	double := true
	for i := len(body) - 1; i >= 0; i-- {
		d := int(body[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	check := (10 - sum%10) % 10
	return check == int(s[Length-1]-'0')
}

func Validate(raw string) Result {
	if !IsFormat(raw) {
		return Result{Err: ErrFormat}
	}
	if !Luhn(raw) {
		return Result{Err: ErrChecksum}
	}
	return Result{Valid: true}
}

// Mask renders only the last four digits, replacing every other character
// with an asterisk. Anything shorter than five characters is fully masked.
func Mask(raw string) string {
	s := Clean(raw)
	if len(s) <= visibleDigits {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-visibleDigits) + s[len(s)-visibleDigits:]
}
