package notify

import (
	"bytes"
	"mime"
	"strings"
)

type Message struct {
	Kind     string
	From     string
	To       string
	ReplyTo  string
	Subject  string
	HTMLBody string
}

var headerCleaner = strings.NewReplacer("\r", "", "\n", "")

// Bytes renders the message as an RFC 5322 document with CRLF line endings.
func (m Message) Bytes() []byte {
	var b bytes.Buffer
	writeHeader(&b, "From", m.From)
	writeHeader(&b, "To", m.To)
	if m.ReplyTo != "" {
		writeHeader(&b, "Reply-To", m.ReplyTo)
	}
	writeHeader(&b, "Subject", mime.QEncoding.Encode("utf-8", headerCleaner.Replace(m.Subject)))
	writeHeader(&b, "MIME-Version", "1.0")
	writeHeader(&b, "Content-Type", "text/html; charset=UTF-8")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(m.HTMLBody, "\r\n", "\n"), "\n", "\r\n"))
	return b.Bytes()
}

func writeHeader(b *bytes.Buffer, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(headerCleaner.Replace(value))
	b.WriteString("\r\n")
}
