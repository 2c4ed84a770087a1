package view

import (
	"html"
	"strings"
	"testing"

	"registrationportal/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSubmission() *model.Submission {
	return &model.Submission{
		ID:        "REG-20240615-ABC12345",
		Timestamp: "2024-06-15T14:05:00Z",
		ClientIP:  "203.0.113.7",
		Fields: map[string]any{
			"firstName":        "Ada",
			"lastName":         "Lovelace",
			"dateOfBirth":      "1990-12-10",
			"gender":           "female",
			"email":            "ada@example.com",
			"phone":            "+44 20 7946 0958",
			"alternatePhone":   "",
			"education":        "master",
			"graduationYear":   float64(2012),
			"workExperience":   "5",
			"skills":           "Go,  SQL ,Math",
			"motivation":       "line one\nline <two>",
			"termsAgreement":   true,
			"privacyAgreement": true,
			"dataProcessing":   true,
			"newsletter":       false,
		},
		Files: []model.FileRecord{{OriginalName: "cv.pdf", SizeBytes: 1536}},
	}
}

// ── formatting ──

func TestFormatValue(t *testing.T) {
	tests := []struct {
		key  string
		in   any
		want string
	}{
		{"dateOfBirth", "1990-12-10", "December 10, 1990"},
		{"dateOfBirth", "garbage", "garbage"},
		{"gender", "female", "Female"},
		{"education", "high-school", "High School Diploma"},
		{"education", "bootcamp", "Bootcamp"},
		{"workExperience", "5", "5 years"},
		{"termsAgreement", true, "Yes"},
		{"newsletter", false, "No"},
		{"skills", "Go,  SQL ,Math", "Go • SQL • Math"},
		{"graduationYear", float64(2012), "2012"},
		{"graduationYear", 2012, "2012"},
		{"city", "London", "London"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.key, tt.in))
		})
	}
}

func TestFieldLabel(t *testing.T) {
	assert.Equal(t, "ID/Passport Number", FieldLabel("idNumber"))
	assert.Equal(t, "Referral source", FieldLabel("referral_source"))
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{10 * 1024 * 1024, "10 MB"},
		{3 * 1024 * 1024 * 1024, "3 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFileSize(tt.in))
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "June 15, 2024 at 2:05 PM", FormatTimestamp("2024-06-15T14:05:00Z"))
	assert.Equal(t, "nope", FormatTimestamp("nope"))
}

func TestSections(t *testing.T) {
	sections := Sections(sampleSubmission())
	require.Len(t, sections, 4)

	personal := sections[0]
	assert.Equal(t, "Personal Information", personal.Title)
	assert.Equal(t, NewRow("First Name", "Ada", false), personal.Rows[0])

	for _, row := range sections[1].Rows {
		assert.NotEqual(t, "Alternate Phone", row.Label, "blank values are skipped")
	}

	edu := sections[2]
	last := edu.Rows[len(edu.Rows)-1]
	assert.Equal(t, "Motivation for Application", last.Label)
	assert.True(t, last.Wide)

	agreements := sections[3]
	require.Len(t, agreements.Rows, 4)
	assert.Equal(t, "No", agreements.Rows[3].Value)
}

// ── templates ──

func TestEngine_Receipt(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	sub := sampleSubmission()
	out, err := e.RenderString(Receipt, Context{
		"id":           sub.ID,
		"submitted_at": FormatTimestamp(sub.Timestamp),
		"sections":     Sections(sub),
		"files": []map[string]string{
			{"Name": "cv<1>.pdf", "Size": "1.5 KB", "UploadedAt": "June 15, 2024 at 2:05 PM"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "REG-20240615-ABC12345")
	assert.Contains(t, out, "December 10, 1990")
	assert.Contains(t, out, "Masters Degree")
	assert.Contains(t, out, "line one<br />")
	assert.Contains(t, out, "line &lt;two&gt;")
	assert.Contains(t, out, "cv&lt;1&gt;.pdf")
	assert.NotContains(t, out, "<two>")
}

func TestEngine_ReceiptEscapesOnce(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	sub := sampleSubmission()
	sub.Fields["lastName"] = "O'Brien"
	sub.Fields["motivation"] = "line one\r\nR&D work"
	out, err := e.RenderString(Receipt, Context{
		"id":       sub.ID,
		"sections": Sections(sub),
	})
	require.NoError(t, err)

	assert.Contains(t, out, `info-value">O&#39;Brien<`)
	assert.Contains(t, out, `info-value">line one<br />R&amp;D work<`)
	assert.NotContains(t, out, "&amp;#39;")
	assert.NotContains(t, out, "&amp;amp;")
	assert.NotContains(t, out, "&lt;br")

	text := html.UnescapeString(out)
	assert.Contains(t, text, "O'Brien")
	assert.Contains(t, text, "line one<br />R&D work")
}

func TestEngine_Emails(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	out, err := e.RenderString(Confirmation, Context{
		"name":  "Ada <b>Lovelace</b>",
		"id":    "REG-20240615-ABC12345",
		"email": "ada@example.com",
		"year":  2024,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Dear Ada &lt;b&gt;Lovelace&lt;/b&gt;,")
	assert.Contains(t, out, "REG-20240615-ABC12345")

	out, err = e.RenderString(AdminNotice, Context{
		"id":   "REG-20240615-ABC12345",
		"rows": []Row{{Label: "Email", Value: "ada@example.com"}},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "<td>Email</td><td>ada@example.com</td>")
	assert.Contains(t, out, "No files uploaded")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<html>"))
}

func TestEngine_UnknownTemplate(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	_, err = e.RenderString("missing.html", nil)
	assert.Error(t, err)
}

func TestFiles(t *testing.T) {
	sub := sampleSubmission()
	sub.Files[0].UploadedAt = "2024-06-15T14:05:00Z"

	rows := Files(sub)
	require.Len(t, rows, 1)
	assert.Equal(t, FileRow{Name: "cv.pdf", Size: "1.5 KB", UploadedAt: "June 15, 2024 at 2:05 PM"}, rows[0])
}
