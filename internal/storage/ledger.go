package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"registrationportal/internal/errdefs"
	"registrationportal/internal/idgen"
	"registrationportal/internal/logging"
	"registrationportal/internal/model"

	"go.uber.org/zap"
)

const (
	ledgerName     = "submissions.json"
	snapshotPrefix = "submission_"
)

// LedgerStore keeps every submission twice: in one append-only JSON array and
// in a per-id snapshot file. The snapshot is written first; if the ledger
// append fails the snapshot is removed again.
type LedgerStore struct {
	dir    string
	ledger string
	mu     sync.Mutex
	now    func() time.Time
}

func NewLedgerStore(dir string) (*LedgerStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &errdefs.StorageError{Op: "init", Err: err}
	}
	return &LedgerStore{
		dir:    dir,
		ledger: filepath.Join(dir, ledgerName),
		now:    time.Now,
	}, nil
}

func (s *LedgerStore) Save(ctx context.Context, sub *model.Submission) error {
	if err := ctx.Err(); err != nil {
		return &errdefs.StorageError{Op: "save", Err: err}
	}
	if !idgen.Valid(sub.ID) {
		return &errdefs.StorageError{Op: "save", Err: fmt.Errorf("invalid submission id %q", sub.ID)}
	}

	snapshot := s.snapshotPath(sub.ID)
	if err := writeExclusive(snapshot, sub); err != nil {
		return &errdefs.StorageError{Op: "snapshot", Err: err}
	}

	if err := s.append(ctx, sub); err != nil {
		if rmErr := os.Remove(snapshot); rmErr != nil {
			logging.FromContext(ctx, nil).Error(ctx, "failed to roll back snapshot",
				zap.String("path", snapshot), zap.Error(rmErr))
		}
		return &errdefs.StorageError{Op: "append", Err: err}
	}
	return nil
}

// Get reads the snapshot for id and falls back to scanning the ledger.
func (s *LedgerStore) Get(ctx context.Context, id string) (*model.Submission, error) {
	if !idgen.Valid(id) {
		return nil, fmt.Errorf("submission %q: %w", id, errdefs.ErrNotFound)
	}

	data, err := os.ReadFile(s.snapshotPath(id))
	switch {
	case err == nil:
		var sub model.Submission
		if err := json.Unmarshal(data, &sub); err == nil {
			return &sub, nil
		}
		logging.FromContext(ctx, nil).Warn(ctx, "unreadable snapshot, scanning ledger", zap.String("submission_id", id))
	case !errors.Is(err, os.ErrNotExist):
		return nil, &errdefs.StorageError{Op: "get", Err: err}
	}

	subs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if subs[i].ID == id {
			return &subs[i], nil
		}
	}
	return nil, fmt.Errorf("submission %q: %w", id, errdefs.ErrNotFound)
}

// List returns the ledger in submission order.
func (s *LedgerStore) List(_ context.Context) ([]model.Submission, error) {
	unlock, err := lockFile(s.ledger+".lock", false)
	if err != nil {
		return nil, &errdefs.StorageError{Op: "list", Err: err}
	}
	defer unlock()

	subs, err := readLedger(s.ledger)
	if err != nil {
		return nil, &errdefs.StorageError{Op: "list", Err: err}
	}
	return subs, nil
}

func (s *LedgerStore) append(ctx context.Context, sub *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockFile(s.ledger+".lock", true)
	if err != nil {
		return err
	}
	defer unlock()

	subs, err := readLedger(s.ledger)
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		corrupt := s.ledger + ".corrupt-" + strconv.FormatInt(s.now().Unix(), 10)
		logging.FromContext(ctx, nil).Warn(ctx, "ledger is not valid JSON, starting a new one",
			zap.String("preserved_as", corrupt), zap.Error(err))
		if err := os.Rename(s.ledger, corrupt); err != nil {
			return fmt.Errorf("preserve corrupt ledger: %w", err)
		}
		subs, err = nil, nil
	}
	if err != nil {
		return err
	}

	subs = append(subs, *sub)
	return writeAtomic(s.ledger, subs)
}

func (s *LedgerStore) snapshotPath(id string) string {
	return filepath.Join(s.dir, snapshotPrefix+id+".json")
}

func readLedger(path string) ([]model.Submission, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.Submission{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []model.Submission{}, nil
	}
	var subs []model.Submission
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	return subs, nil
}

// writeAtomic replaces path with the JSON encoding of v via a synced temp file.
func writeAtomic(path string, v any) error {
	tmp, err := writeTemp(path, v)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// writeExclusive publishes a complete file at path, failing with
// ErrAlreadyExists if something is there already.
func writeExclusive(path string, v any) error {
	tmp, err := writeTemp(path, v)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", filepath.Base(path), errdefs.ErrAlreadyExists)
		}
		return fmt.Errorf("link: %w", err)
	}
	return nil
}

func writeTemp(path string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	name := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("chmod temp: %w", err)
	}
	return name, nil
}
