package view

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"registrationportal/internal/model"
)

var fieldLabels = map[string]string{
	"firstName":        "First Name",
	"lastName":         "Last Name",
	"dateOfBirth":      "Date of Birth",
	"gender":           "Gender",
	"nationality":      "Nationality",
	"idNumber":         "ID/Passport Number",
	"email":            "Email Address",
	"phone":            "Phone Number",
	"alternatePhone":   "Alternate Phone",
	"address":          "Street Address",
	"city":             "City",
	"state":            "State/Province",
	"zipCode":          "ZIP/Postal Code",
	"country":          "Country",
	"education":        "Education Level",
	"fieldOfStudy":     "Field of Study",
	"institution":      "Institution",
	"graduationYear":   "Graduation Year",
	"workExperience":   "Work Experience",
	"currentPosition":  "Current Position",
	"skills":           "Skills & Competencies",
	"motivation":       "Motivation for Application",
	"termsAgreement":   "Terms & Conditions Agreement",
	"privacyAgreement": "Privacy Policy Agreement",
	"dataProcessing":   "Data Processing Consent",
	"newsletter":       "Newsletter Subscription",
}

var educationLabels = map[string]string{
	"high-school": "High School Diploma",
	"associate":   "Associate Degree",
	"bachelor":    "Bachelors Degree",
	"master":      "Masters Degree",
	"doctorate":   "Doctorate/PhD",
	"other":       "Other",
}

// Row is one labelled value. Lines holds Value split on newlines so templates
// can join them with <br /> while autoescape covers the text.
type Row struct {
	Label string
	Value string
	Lines []string
	Wide  bool
}

func NewRow(label, value string, wide bool) Row {
	return Row{Label: label, Value: value, Lines: splitLines(value), Wide: wide}
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

type Section struct {
	Title string
	Icon  string
	Rows  []Row
}

type FileRow struct {
	Name       string
	Size       string
	UploadedAt string
}

type sectionSpec struct {
	title     string
	icon      string
	fields    []string
	wide      []string
	keepEmpty bool
}

var receiptSections = []sectionSpec{
	{title: "Personal Information", icon: "user",
		fields: []string{"firstName", "lastName", "dateOfBirth", "gender", "nationality", "idNumber"}},
	{title: "Contact Information", icon: "address-book",
		fields: []string{"email", "phone", "alternatePhone", "address", "city", "state", "zipCode", "country"}},
	{title: "Education & Professional Information", icon: "graduation-cap",
		fields: []string{"education", "fieldOfStudy", "institution", "graduationYear", "workExperience", "currentPosition"},
		wide:   []string{"skills", "motivation"}},
	{title: "Agreements & Consents", icon: "shield-alt",
		fields:    []string{"termsAgreement", "privacyAgreement", "dataProcessing", "newsletter"},
		keepEmpty: true},
}

// Sections groups a submission's fields for display. Blank values are
// omitted, except agreements which show Yes/No whenever present.
func Sections(sub *model.Submission) []Section {
	out := make([]Section, 0, len(receiptSections))
	for _, spec := range receiptSections {
		sec := Section{Title: spec.title, Icon: spec.icon}
		add := func(field string, wide bool) {
			v, ok := sub.Fields[field]
			if !ok || (!spec.keepEmpty && isBlank(v)) {
				return
			}
			sec.Rows = append(sec.Rows, NewRow(FieldLabel(field), FormatValue(field, v), wide))
		}
		for _, f := range spec.fields {
			add(f, false)
		}
		for _, f := range spec.wide {
			add(f, true)
		}
		out = append(out, sec)
	}
	return out
}

func Files(sub *model.Submission) []FileRow {
	rows := make([]FileRow, 0, len(sub.Files))
	for _, f := range sub.Files {
		rows = append(rows, FileRow{
			Name:       f.OriginalName,
			Size:       FormatFileSize(f.SizeBytes),
			UploadedAt: FormatTimestamp(f.UploadedAt),
		})
	}
	return rows
}

func FieldLabel(key string) string {
	if label, ok := fieldLabels[key]; ok {
		return label
	}
	return upperFirst(strings.ReplaceAll(key, "_", " "))
}

// FormatValue renders a stored field value as display text. The result is
// not escaped.
func FormatValue(key string, v any) string {
	switch key {
	case "dateOfBirth":
		s := Stringify(v)
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t.Format("January 2, 2006")
		}
		return s
	case "gender":
		return upperFirst(Stringify(v))
	case "education":
		s := Stringify(v)
		if label, ok := educationLabels[s]; ok {
			return label
		}
		return upperFirst(s)
	case "workExperience":
		return Stringify(v) + " years"
	case "termsAgreement", "privacyAgreement", "dataProcessing", "newsletter":
		if b, ok := v.(bool); ok && b {
			return "Yes"
		}
		return "No"
	case "skills":
		s := Stringify(v)
		if s == "" {
			return s
		}
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return strings.Join(parts, " • ")
	}
	return Stringify(v)
}

// FormatTimestamp turns an RFC 3339 timestamp into "January 2, 2006 at 3:04 PM".
func FormatTimestamp(ts string) string {
	t, err := time.Parse(model.TimeLayout, ts)
	if err != nil {
		return ts
	}
	return t.Format("January 2, 2006 at 3:04 PM")
}

func FormatFileSize(size int64) string {
	if size <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	value := float64(size)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + units[i]
}

func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	}
	return fmt.Sprint(v)
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	}
	return false
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
