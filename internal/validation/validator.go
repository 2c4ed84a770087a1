package validation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"registrationportal/internal/errdefs"
)

type Config struct {
	MinAge              int
	MaxNameLength       int
	MinMotivationLength int
	MaxMotivationLength int
}

const dateLayout = "2006-01-02"

var (
	emailDisallowed = regexp.MustCompile("[^A-Za-z0-9.!#$%&'*+/=?^_{|}~@\\[\\]-]")
	emailPattern    = regexp.MustCompile(`^[A-Za-z0-9.!#$%&'*+/=?^_{|}~-]+@[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)
	phoneDisallowed = regexp.MustCompile(`[^+\d\s\-()]`)
	phonePattern    = regexp.MustCompile(`^\+?[\d\s\-()]{10,}$`)
	namePattern     = regexp.MustCompile(`^[\p{L}\s\-.']+$`)
)

var truthy = map[string]bool{"on": true, "1": true, "true": true}

type checkFunc func(v *Validator, field, value string) (any, error)

type rule struct {
	field    string
	required bool
	check    checkFunc
}

// Validator turns raw form values into sanitized typed values. It holds no
// mutable state and is safe for concurrent use.
type Validator struct {
	cfg   Config
	now   func() time.Time
	rules []rule
	known map[string]struct{}
}

func New(cfg Config, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	v := &Validator{cfg: cfg, now: now}
	v.rules = []rule{
		{field: "firstName", required: true, check: checkName},
		{field: "lastName", required: true, check: checkName},
		{field: "dateOfBirth", required: true, check: checkDateOfBirth},
		{field: "gender", required: true, check: checkText},
		{field: "nationality", required: true, check: checkText},
		{field: "idNumber", required: true, check: checkText},
		{field: "email", required: true, check: checkEmail},
		{field: "phone", required: true, check: checkPhone},
		{field: "address", required: true, check: checkText},
		{field: "city", required: true, check: checkText},
		{field: "state", required: true, check: checkText},
		{field: "zipCode", required: true, check: checkText},
		{field: "country", required: true, check: checkText},
		{field: "education", required: true, check: checkText},
		{field: "fieldOfStudy", required: true, check: checkText},
		{field: "institution", required: true, check: checkText},
		{field: "graduationYear", required: true, check: checkGraduationYear},
		{field: "workExperience", required: true, check: checkText},
		{field: "motivation", required: true, check: checkMotivation},
		{field: "termsAgreement", required: true, check: checkAgreement},
		{field: "privacyAgreement", required: true, check: checkAgreement},
		{field: "dataProcessing", required: true, check: checkAgreement},
		{field: "alternatePhone", check: checkPhone},
		{field: "currentPosition", check: checkText},
		{field: "skills", check: checkText},
		{field: "newsletter", check: checkFlag},
	}
	v.known = make(map[string]struct{}, len(v.rules))
	for _, r := range v.rules {
		v.known[r.field] = struct{}{}
	}
	return v
}

// Validate applies the rule table in order and stops at the first failing
// field. Fields outside the table are stripped of markup and kept.
func (v *Validator) Validate(raw map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(raw))

	for _, r := range v.rules {
		value, present := raw[r.field]
		value = strings.TrimSpace(value)

		if r.required && value == "" && !isAgreement(r.field) {
			return nil, errdefs.NewValidationError(r.field, "Required field '%s' is missing or empty", r.field)
		}
		if !r.required && !present {
			continue
		}

		sanitized, err := r.check(v, r.field, value)
		if err != nil {
			return nil, err
		}
		out[r.field] = sanitized
	}

	extra := make([]string, 0)
	for name := range raw {
		if _, ok := v.known[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out[name] = StripMarkup(raw[name])
	}

	return out, nil
}

func isAgreement(field string) bool {
	switch field {
	case "termsAgreement", "privacyAgreement", "dataProcessing":
		return true
	}
	return false
}

func checkText(_ *Validator, _ string, value string) (any, error) {
	return StripMarkup(value), nil
}

func checkEmail(_ *Validator, field, value string) (any, error) {
	value = emailDisallowed.ReplaceAllString(value, "")
	if !emailPattern.MatchString(value) {
		return nil, errdefs.NewValidationError(field, "Invalid email address format")
	}
	return value, nil
}

func checkPhone(_ *Validator, field, value string) (any, error) {
	value = strings.TrimSpace(phoneDisallowed.ReplaceAllString(value, ""))
	if value != "" && !phonePattern.MatchString(value) {
		return nil, errdefs.NewValidationError(field, "Invalid phone number format")
	}
	return value, nil
}

func checkDateOfBirth(v *Validator, field, value string) (any, error) {
	birth, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, errdefs.NewValidationError(field, "Invalid date of birth format")
	}
	if age(birth, v.now()) < v.cfg.MinAge {
		return nil, errdefs.NewValidationError(field, "Applicant must be at least %d years old", v.cfg.MinAge)
	}
	return value, nil
}

// age is the number of full calendar years between birth and now.
func age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}

func checkName(v *Validator, field, value string) (any, error) {
	value = StripMarkup(value)
	n := utf8.RuneCountInString(value)
	if n < 2 || n > v.cfg.MaxNameLength || !namePattern.MatchString(value) {
		return nil, errdefs.NewValidationError(field, "Invalid %s format", field)
	}
	return value, nil
}

func checkGraduationYear(v *Validator, field, value string) (any, error) {
	year, err := strconv.Atoi(value)
	current := v.now().Year()
	if err != nil || year < current-50 || year > current+5 {
		return nil, errdefs.NewValidationError(field, "Invalid graduation year")
	}
	return year, nil
}

func checkMotivation(v *Validator, field, value string) (any, error) {
	value = StripMarkup(value)
	n := utf8.RuneCountInString(value)
	if n < v.cfg.MinMotivationLength || n > v.cfg.MaxMotivationLength {
		return nil, errdefs.NewValidationError(field, "Motivation must be between %d and %d characters",
			v.cfg.MinMotivationLength, v.cfg.MaxMotivationLength)
	}
	return value, nil
}

func checkAgreement(_ *Validator, field, value string) (any, error) {
	if !truthy[value] {
		return nil, errdefs.NewValidationError(field, "Required agreement '%s' is not checked", field)
	}
	return true, nil
}

func checkFlag(_ *Validator, _ string, value string) (any, error) {
	return truthy[value], nil
}
