package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"registrationportal/internal/errdefs"
	"registrationportal/internal/logging"
	"registrationportal/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBaseLength = 50

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

type Config struct {
	UploadDir         string
	MaxFileSize       int64
	AllowedExtensions []string
}

// Intake checks uploaded documents and moves them into the upload directory.
type Intake struct {
	dir     string
	maxSize int64
	allowed map[string]bool
	now     func() time.Time
}

func New(cfg Config, now func() time.Time) *Intake {
	if now == nil {
		now = time.Now
	}
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))] = true
	}
	return &Intake{
		dir:     cfg.UploadDir,
		maxSize: cfg.MaxFileSize,
		allowed: allowed,
		now:     now,
	}
}

// Accept stores every file or none of them. All entries are checked before
// the first write; if a later copy fails, files already stored by this call
// are removed again.
func (in *Intake) Accept(ctx context.Context, files []*multipart.FileHeader) ([]model.FileRecord, error) {
	logger := logging.FromContext(ctx, nil)

	pending := make([]*multipart.FileHeader, 0, len(files))
	for _, fh := range files {
		if fh == nil || fh.Filename == "" {
			continue
		}
		if err := in.check(fh); err != nil {
			return nil, err
		}
		pending = append(pending, fh)
	}
	if len(pending) == 0 {
		return []model.FileRecord{}, nil
	}

	if err := os.MkdirAll(in.dir, 0o755); err != nil {
		return nil, &errdefs.FileUploadError{File: pending[0].Filename, Reason: errdefs.ReasonMoveFailed, Err: err}
	}

	records := make([]model.FileRecord, 0, len(pending))
	for _, fh := range pending {
		rec, err := in.store(fh)
		if err != nil {
			in.Discard(ctx, records)
			return nil, &errdefs.FileUploadError{File: fh.Filename, Reason: errdefs.ReasonMoveFailed, Err: err}
		}
		logger.Debug(ctx, "file stored",
			zap.String("original_name", rec.OriginalName),
			zap.String("stored_name", rec.StoredName),
			zap.Int64("size_bytes", rec.SizeBytes))
		records = append(records, rec)
	}
	return records, nil
}

// Discard removes files previously returned by Accept.
func (in *Intake) Discard(ctx context.Context, records []model.FileRecord) {
	logger := logging.FromContext(ctx, nil)
	for _, rec := range records {
		path := filepath.Join(in.dir, rec.StoredName)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn(ctx, "failed to remove stored file", zap.String("path", path), zap.Error(err))
		}
	}
}

func (in *Intake) check(fh *multipart.FileHeader) error {
	if fh.Size > in.maxSize {
		return &errdefs.FileUploadError{File: fh.Filename, Reason: errdefs.ReasonTooLarge}
	}
	if !in.allowed[extension(fh.Filename)] {
		return &errdefs.FileUploadError{File: fh.Filename, Reason: errdefs.ReasonUnsupportedType}
	}
	return nil
}

func (in *Intake) store(fh *multipart.FileHeader) (model.FileRecord, error) {
	ext := extension(fh.Filename)
	name, err := storedName(fh.Filename, ext)
	if err != nil {
		return model.FileRecord{}, err
	}

	src, err := fh.Open()
	if err != nil {
		return model.FileRecord{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dstPath := filepath.Join(in.dir, name)
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return model.FileRecord{}, fmt.Errorf("create %s: %w", name, err)
	}

	written, err := io.Copy(dst, io.LimitReader(src, in.maxSize+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > in.maxSize {
		err = fmt.Errorf("upload grew past %d bytes", in.maxSize)
	}
	if err != nil {
		_ = os.Remove(dstPath)
		return model.FileRecord{}, fmt.Errorf("copy %s: %w", name, err)
	}

	return model.FileRecord{
		OriginalName: fh.Filename,
		StoredName:   name,
		SizeBytes:    written,
		Extension:    ext,
		StoredAt:     filepath.ToSlash(dstPath),
		ContentType:  contentType(ext),
		UploadedAt:   in.now().UTC().Format(model.TimeLayout),
	}, nil
}

func extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// storedName builds <safe base>_<token>.<ext>.
func storedName(original, ext string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	token := strings.ReplaceAll(id.String(), "-", "")
	return SafeBaseName(original) + "_" + token + "." + ext, nil
}

// SafeBaseName reduces a client file name to [a-zA-Z0-9_-], at most 50 chars.
func SafeBaseName(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	if len(base) > maxBaseLength {
		base = base[:maxBaseLength]
	}
	if base == "" || base == "_" {
		return "file"
	}
	return base
}

func contentType(ext string) string {
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
