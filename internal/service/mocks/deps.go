package mocks

import (
	"context"
	"mime/multipart"

	"registrationportal/internal/model"

	"github.com/stretchr/testify/mock"
)

type Validator struct {
	mock.Mock
}

func (m *Validator) Validate(raw map[string]string) (map[string]any, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

type FileIntake struct {
	mock.Mock
}

func (m *FileIntake) Accept(ctx context.Context, files []*multipart.FileHeader) ([]model.FileRecord, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FileRecord), args.Error(1)
}

func (m *FileIntake) Discard(ctx context.Context, records []model.FileRecord) {
	m.Called(ctx, records)
}

type Store struct {
	mock.Mock
}

func (m *Store) Save(ctx context.Context, sub *model.Submission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *Store) Get(ctx context.Context, id string) (*model.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Submission), args.Error(1)
}

type Dispatcher struct {
	mock.Mock
}

func (m *Dispatcher) Dispatch(ctx context.Context, sub *model.Submission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}
