package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"registrationportal/internal/errdefs"
	"registrationportal/internal/idgen"
	"registrationportal/internal/logging"
	"registrationportal/internal/metrics"
	"registrationportal/internal/model"

	"go.uber.org/zap"
)

const (
	maxIDAttempts  = 3
	cacheKeyPrefix = "submission:"
)

type State string

const (
	StateReceived     State = "received"
	StateValidating   State = "validating"
	StateRejected     State = "rejected"
	StateFileHandling State = "file_handling"
	StateFileRejected State = "file_rejected"
	StatePersisting   State = "persisting"
	StateStoreFailed  State = "store_failed"
	StateNotifying    State = "notifying"
	StateResponded    State = "responded"
)

type Validator interface {
	Validate(raw map[string]string) (map[string]any, error)
}

type FileIntake interface {
	Accept(ctx context.Context, files []*multipart.FileHeader) ([]model.FileRecord, error)
	Discard(ctx context.Context, records []model.FileRecord)
}

type Store interface {
	Save(ctx context.Context, sub *model.Submission) error
	Get(ctx context.Context, id string) (*model.Submission, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, sub *model.Submission) error
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration)
}

type SubmitInput struct {
	Fields    map[string]string
	Files     []*multipart.FileHeader
	ClientIP  string
	UserAgent string
}

type SubmitResult struct {
	ID        string
	Timestamp string
}

type RegistrationService struct {
	validator  Validator
	intake     FileIntake
	store      Store
	dispatcher Dispatcher
	cache      Cache
	cacheTTL   time.Duration
	metrics    *metrics.Metrics
	now        func() time.Time
}

type Deps struct {
	Validator  Validator
	Intake     FileIntake
	Store      Store
	Dispatcher Dispatcher
	Cache      Cache
	CacheTTL   time.Duration
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

func NewRegistrationService(d Deps) *RegistrationService {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &RegistrationService{
		validator:  d.Validator,
		intake:     d.Intake,
		store:      d.Store,
		dispatcher: d.Dispatcher,
		cache:      d.Cache,
		cacheTTL:   d.CacheTTL,
		metrics:    d.Metrics,
		now:        now,
	}
}

// Submit runs one submission through validation, file intake, persistence
// and notification dispatch. Nothing is persisted unless every earlier step
// succeeded; a notification failure does not fail the submission.
func (s *RegistrationService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	logger := logging.FromContext(ctx, nil)
	state := StateReceived
	transition := func(next State) {
		logger.Debug(ctx, "submission state", zap.String("from", string(state)), zap.String("to", string(next)))
		state = next
	}

	transition(StateValidating)
	fields, err := s.validator.Validate(in.Fields)
	if err != nil {
		transition(StateRejected)
		s.metrics.Submission("rejected")
		return nil, err
	}

	transition(StateFileHandling)
	files, err := s.intake.Accept(ctx, in.Files)
	if err != nil {
		transition(StateFileRejected)
		s.metrics.Submission("file_rejected")
		return nil, err
	}

	transition(StatePersisting)
	sub, err := s.persist(ctx, fields, files, in)
	if err != nil {
		transition(StateStoreFailed)
		s.intake.Discard(ctx, files)
		s.metrics.Submission("store_failed")
		return nil, err
	}
	for _, f := range files {
		s.metrics.FileStored(f.SizeBytes)
	}
	logger.Info(ctx, fmt.Sprintf("New submission received: %s", sub.ID),
		zap.String("submission_id", sub.ID), zap.Int("files", len(files)))

	transition(StateNotifying)
	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, sub); err != nil {
			logger.Error(ctx, "Email notification failed", zap.String("submission_id", sub.ID), zap.Error(err))
		}
	}

	transition(StateResponded)
	s.metrics.Submission("accepted")
	return &SubmitResult{ID: sub.ID, Timestamp: sub.Timestamp}, nil
}

func (s *RegistrationService) persist(ctx context.Context, fields map[string]any, files []model.FileRecord, in SubmitInput) (*model.Submission, error) {
	now := s.now().UTC()
	sub := &model.Submission{
		Timestamp: now.Format(model.TimeLayout),
		ClientIP:  in.ClientIP,
		UserAgent: in.UserAgent,
		Fields:    fields,
		Files:     files,
		Status:    model.StatusSubmitted,
	}
	if sub.Files == nil {
		sub.Files = []model.FileRecord{}
	}

	var err error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		sub.ID = idgen.New(now)
		err = s.store.Save(ctx, sub)
		if !errors.Is(err, errdefs.ErrAlreadyExists) {
			break
		}
		logging.FromContext(ctx, nil).Warn(ctx, "submission id collision, regenerating", zap.String("submission_id", sub.ID))
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Lookup returns a stored submission for the receipt page. Submissions never
// change once written, so cached copies are never invalidated.
func (s *RegistrationService) Lookup(ctx context.Context, id string) (*model.Submission, error) {
	if !idgen.Valid(id) {
		return nil, fmt.Errorf("submission %q: %w", id, errdefs.ErrNotFound)
	}

	key := cacheKeyPrefix + id
	if s.cache != nil {
		if data, ok := s.cache.Get(ctx, key); ok {
			var sub model.Submission
			if err := json.Unmarshal(data, &sub); err == nil {
				return &sub, nil
			}
		}
	}

	sub, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(sub); err == nil {
			s.cache.Set(ctx, key, data, s.cacheTTL)
		}
	}
	return sub, nil
}
