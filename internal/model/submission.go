package model

import "time"

type Status string

const StatusSubmitted Status = "submitted"

const TimeLayout = time.RFC3339

type Submission struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	ClientIP  string         `json:"client_ip"`
	UserAgent string         `json:"user_agent"`
	Fields    map[string]any `json:"fields"`
	Files     []FileRecord   `json:"files"`
	Status    Status         `json:"status"`
}

type FileRecord struct {
	OriginalName string `json:"original_name"`
	StoredName   string `json:"stored_name"`
	SizeBytes    int64  `json:"size_bytes"`
	Extension    string `json:"extension"`
	StoredAt     string `json:"stored_at"`
	ContentType  string `json:"content_type"`
	UploadedAt   string `json:"uploaded_at"`
}

// Field returns a field value as a string, or "" when absent.
func (s *Submission) Field(name string) string {
	v, ok := s.Fields[name]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return ""
}

func (s *Submission) FullName() string {
	first, last := s.Field("firstName"), s.Field("lastName")
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}
