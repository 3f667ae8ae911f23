package domain

import (
	"regexp"

	"empty-jar/internal/weekkey"

	"github.com/go-playground/validator/v10"
)

var hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// NewValidator returns a validator with the weekkey and hhmm tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("weekkey", func(fl validator.FieldLevel) bool {
		return weekkey.Validate(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	})
	return v
}

// ParseClock splits an "HH:MM" string into hour and minute.
func ParseClock(s string) (int, int, bool) {
	if !hhmmPattern.MatchString(s) {
		return 0, 0, false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h, m, true
}
