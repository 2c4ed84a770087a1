package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"registrationportal/internal/ctxdata"
	"registrationportal/internal/errdefs"
	"registrationportal/internal/logging"
	"registrationportal/internal/middleware"
	"registrationportal/internal/model"
	"registrationportal/internal/service"
	"registrationportal/internal/view"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const multipartMemory = 8 << 20

// uploadFields are the multipart field names documents may arrive under.
var uploadFields = []string{"documents", "documents[]"}

//go:generate mockgen -source=handler.go -destination=mocks/service.go -package=mocks
type RegistrationService interface {
	Submit(ctx context.Context, in service.SubmitInput) (*service.SubmitResult, error)
	Lookup(ctx context.Context, id string) (*model.Submission, error)
}

type RegistrationHandler struct {
	svc            RegistrationService
	engine         *view.Engine
	staticDir      string
	maxRequestSize int64
	logger         *logging.Logger
}

func NewRegistrationHandler(svc RegistrationService, engine *view.Engine, staticDir string, maxRequestSize int64, logger *logging.Logger) *RegistrationHandler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RegistrationHandler{
		svc:            svc,
		engine:         engine,
		staticDir:      staticDir,
		maxRequestSize: maxRequestSize,
		logger:         logger,
	}
}

func (h *RegistrationHandler) RegisterRoutes(r chi.Router, rateLimit func(http.Handler) http.Handler) {
	if rateLimit == nil {
		r.HandleFunc("/submit", h.Submit)
	} else {
		r.With(rateLimit).HandleFunc("/submit", h.Submit)
	}
	r.Get("/success", h.Success)

	r.Get("/", h.Static("index.html"))
	for _, name := range []string{"index.html", "styles.css", "script.js"} {
		r.Get("/"+name, h.Static(name))
	}
}

// Submit accepts the registration form. Only POST is processed; every
// outcome is answered with the JSON envelope the form script expects.
func (h *RegistrationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		h.fail(ctx, w, errdefs.ErrMethodNotAllowed)
		return
	}

	if h.maxRequestSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
	}
	fields, files, err := parseForm(r)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	res, err := h.svc.Submit(ctx, service.SubmitInput{
		Fields:    fields,
		Files:     files,
		ClientIP:  clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{
		Success:      true,
		Message:      msgSubmitted,
		SubmissionID: res.ID,
		Timestamp:    res.Timestamp,
	})
}

// Success renders the receipt page for ?id=. Unknown ids go back to the form.
func (h *RegistrationHandler) Success(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.URL.Query().Get("id")

	sub, err := h.svc.Lookup(ctx, id)
	if err != nil {
		if !errors.Is(err, errdefs.ErrNotFound) {
			h.logger.Error(ctx, "receipt lookup failed", zap.String("submission_id", id), zap.Error(err))
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var buf bytes.Buffer
	err = h.engine.Render(&buf, view.Receipt, view.Context{
		"id":           sub.ID,
		"submitted_at": view.FormatTimestamp(sub.Timestamp),
		"sections":     view.Sections(sub),
		"files":        view.Files(sub),
	})
	if err != nil {
		h.logger.Error(ctx, "render receipt", zap.String("submission_id", id), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Static serves one file from the static directory.
func (h *RegistrationHandler) Static(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := os.Open(filepath.Join(h.staticDir, name))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, name, info.ModTime(), f)
	}
}

// Reject answers a request refused by middleware with the same JSON envelope
// and logging as a failed submission.
func (h *RegistrationHandler) Reject(w http.ResponseWriter, r *http.Request, err error) {
	h.fail(r.Context(), w, err)
}

func (h *RegistrationHandler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	code := mapErr(err)
	msg := fmt.Sprintf("Submission error: %s", err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(ctx, msg, zap.Int("status", code))
	} else {
		h.logger.Warn(ctx, msg, zap.Int("status", code))
	}
	writeErrorJSON(w, code, userMessage(err))
}

func parseForm(r *http.Request) (map[string]string, []*multipart.FileHeader, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, nil, formErr(err)
		}
		var files []*multipart.FileHeader
		for _, name := range uploadFields {
			files = append(files, r.MultipartForm.File[name]...)
		}
		return firstValues(r.MultipartForm.Value), files, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, nil, formErr(err)
	}
	return firstValues(r.PostForm), nil, nil
}

func formErr(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBadForm, err)
}

func firstValues(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func clientIP(r *http.Request) string {
	if ip, ok := ctxdata.GetClientIP(r.Context()); ok {
		return ip
	}
	return middleware.ClientIP(r)
}
