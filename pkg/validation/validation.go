package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	phonePattern  = regexp.MustCompile(`^[1-9][0-9]{9,15}$`)
	nonDigitChars = regexp.MustCompile(`[^0-9]`)
)

// NormalizePhone strips everything but digits, so "+62 812-3456" becomes "628123456".
func NormalizePhone(phone string) string {
	return nonDigitChars.ReplaceAllString(phone, "")
}

// ValidatePhone ensures international format (country code first, no leading 0,
// at least 10 digits) and that the number is dialable for its region.
func ValidatePhone(phone string) error {
	trimmed := NormalizePhone(phone)
	if trimmed == "" {
		return errors.New("phone number cannot be empty")
	}
	if strings.HasPrefix(trimmed, "0") {
		return errors.New("phone number must be in international format without leading 0")
	}
	if !phonePattern.MatchString(trimmed) {
		return errors.New("phone number must include the country code and be at least 10 digits")
	}

	parsed, err := phonenumbers.Parse("+"+trimmed, "")
	if err != nil {
		return errors.New("phone number could not be parsed")
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return errors.New("phone number is not valid for region " + phonenumbers.GetRegionCodeForNumber(parsed))
	}
	return nil
}

// ValidateURL ensures a non-empty absolute http(s) URL.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("url cannot be empty")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return errors.New("url must be valid")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("url must use http or https")
	}
	if u.Host == "" {
		return errors.New("url must include a host")
	}
	return nil
}

// IsURL reports whether raw passes ValidateURL.
func IsURL(raw string) bool {
	return ValidateURL(raw) == nil
}
