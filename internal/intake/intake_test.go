package intake

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"registrationportal/internal/errdefs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	name    string
	content []byte
}

func fileHeaders(t *testing.T, uploads ...upload) []*multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, u := range uploads {
		part, err := w.CreateFormFile("documents", u.name)
		require.NoError(t, err)
		_, err = part.Write(u.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["documents"]
}

func newTestIntake(dir string) *Intake {
	return New(Config{
		UploadDir:         dir,
		MaxFileSize:       16,
		AllowedExtensions: []string{"pdf", "doc", "docx", "jpg", "jpeg", "png"},
	}, func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) })
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return entries
}

var storedNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+_[0-9a-f]{32}\.[a-z]+$`)

func TestAccept_StoresFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	in := newTestIntake(dir)

	records, err := in.Accept(context.Background(), fileHeaders(t,
		upload{"My CV (final).PDF", []byte("%PDF-1.4")},
		upload{"photo.jpg", []byte("jpegdata")},
	))
	require.NoError(t, err)
	require.Len(t, records, 2)

	rec := records[0]
	assert.Equal(t, "My CV (final).PDF", rec.OriginalName)
	assert.Equal(t, "pdf", rec.Extension)
	assert.Equal(t, int64(8), rec.SizeBytes)
	assert.Equal(t, "application/pdf", rec.ContentType)
	assert.Equal(t, "2024-06-15T12:00:00Z", rec.UploadedAt)
	assert.True(t, strings.HasPrefix(rec.StoredName, "My_CV__final__"), rec.StoredName)
	assert.Regexp(t, storedNamePattern, rec.StoredName)
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, rec.StoredName)), rec.StoredAt)

	data, err := os.ReadFile(filepath.Join(dir, rec.StoredName))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	assert.Equal(t, "image/jpeg", records[1].ContentType)
	assert.Len(t, dirEntries(t, dir), 2)
}

func TestAccept_NoFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")

	records, err := newTestIntake(dir).Accept(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Nil(t, dirEntries(t, dir))
}

func TestAccept_SameNameTwice(t *testing.T) {
	dir := t.TempDir()
	in := newTestIntake(dir)

	a, err := in.Accept(context.Background(), fileHeaders(t, upload{"cv.pdf", []byte("one")}))
	require.NoError(t, err)
	b, err := in.Accept(context.Background(), fileHeaders(t, upload{"cv.pdf", []byte("two")}))
	require.NoError(t, err)

	assert.NotEqual(t, a[0].StoredName, b[0].StoredName)
	assert.Len(t, dirEntries(t, dir), 2)
}

func TestAccept_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		uploads []upload
		file    string
		reason  errdefs.FileReason
	}{
		{
			name:    "unsupported extension",
			uploads: []upload{{"cv.pdf", []byte("ok")}, {"setup.exe", []byte("MZ")}},
			file:    "setup.exe",
			reason:  errdefs.ReasonUnsupportedType,
		},
		{
			name:    "no extension",
			uploads: []upload{{"README", []byte("text")}},
			file:    "README",
			reason:  errdefs.ReasonUnsupportedType,
		},
		{
			name:    "oversized",
			uploads: []upload{{"cv.pdf", []byte("ok")}, {"scan.png", bytes.Repeat([]byte("x"), 17)}},
			file:    "scan.png",
			reason:  errdefs.ReasonTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "uploads")

			records, err := newTestIntake(dir).Accept(context.Background(), fileHeaders(t, tt.uploads...))
			require.Error(t, err)
			assert.Nil(t, records)

			var fe *errdefs.FileUploadError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.file, fe.File)
			assert.Equal(t, tt.reason, fe.Reason)
			assert.Empty(t, dirEntries(t, dir), "nothing may be written before all files pass")
		})
	}
}

func TestAccept_UppercaseExtensionAllowed(t *testing.T) {
	records, err := newTestIntake(t.TempDir()).Accept(context.Background(), fileHeaders(t, upload{"SCAN.JPEG", []byte("img")}))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "jpeg", records[0].Extension)
	assert.True(t, strings.HasSuffix(records[0].StoredName, ".jpeg"))
}

func TestAccept_UploadDirUnusable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "uploads")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o644))

	_, err := newTestIntake(blocker).Accept(context.Background(), fileHeaders(t, upload{"cv.pdf", []byte("x")}))

	var fe *errdefs.FileUploadError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, errdefs.ReasonMoveFailed, fe.Reason)
	assert.Equal(t, "Failed to save file 'cv.pdf'", fe.Error())
}

func TestDiscard(t *testing.T) {
	dir := t.TempDir()
	in := newTestIntake(dir)

	records, err := in.Accept(context.Background(), fileHeaders(t,
		upload{"a.pdf", []byte("a")},
		upload{"b.pdf", []byte("b")},
	))
	require.NoError(t, err)
	require.Len(t, dirEntries(t, dir), 2)

	in.Discard(context.Background(), records)
	assert.Empty(t, dirEntries(t, dir))

	// already gone
	in.Discard(context.Background(), records)
}

func TestSafeBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"resume.pdf", "resume"},
		{"my résumé v2.docx", "my_r_sum__v2"},
		{"../../etc/passwd.pdf", "passwd"},
		{`C:\Users\ada\cv.pdf`, "cv"},
		{".pdf", "file"},
		{strings.Repeat("a", 80) + ".pdf", strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeBaseName(tt.in))
		})
	}
}
