// Package validator provides basic validators for form fields.
package validator

import (
	"fmt"
	"mime/multipart"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Check inspects a value and returns the failure messages, if any.
type Check func(value interface{}) []string

// Validator runs a Check and keeps the messages of the last run.
type Validator struct {
	check  Check
	errors []string
}

// New returns a Validator running the given check.
func New(check Check) *Validator {
	return &Validator{check: check}
}

func (v *Validator) IsValid(value interface{}) bool {
	v.errors = v.check(value)
	return len(v.errors) == 0
}

func (v *Validator) Errors() []string {
	errs := make([]string, len(v.errors))
	copy(errs, v.errors)
	return errs
}

// Required fails on nil, empty or whitespace-only values.
func Required(msg string) *Validator {
	if msg == "" {
		msg = "This field is required"
	}
	return New(func(value interface{}) []string {
		if isEmpty(value) {
			return []string{msg}
		}
		return nil
	})
}

// MaxLength fails on strings longer than n characters.
func MaxLength(n int, msg string) *Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at most %d characters", n)
	}
	return New(func(value interface{}) []string {
		if utf8.RuneCountInString(toString(value)) > n {
			return []string{msg}
		}
		return nil
	})
}

// Match fails on non-empty values that do not match re.
func Match(re *regexp.Regexp, msg string) *Validator {
	if msg == "" {
		msg = "Invalid format"
	}
	return New(func(value interface{}) []string {
		s := toString(value)
		if s != "" && !re.MatchString(s) {
			return []string{msg}
		}
		return nil
	})
}

// All combines validators; every validator runs and all messages are kept.
func All(validators ...*Validator) *Validator {
	return New(func(value interface{}) []string {
		var errs []string
		for _, v := range validators {
			if !v.IsValid(value) {
				errs = append(errs, v.Errors()...)
			}
		}
		return errs
	})
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []*multipart.FileHeader:
		return len(v) == 0
	}
	return false
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	}
	return fmt.Sprint(value)
}
