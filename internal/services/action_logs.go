package services

import (
	"context"

	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

const msgActionLogNotFound = "Action log not found"

// ActionLogService exposes the audit log read-only.
type ActionLogService struct {
	store *store.Store
	logs  *store.ActionLogRepository
}

func NewActionLogService(s *store.Store) *ActionLogService {
	return &ActionLogService{store: s, logs: store.NewActionLogRepository(s)}
}

func (s *ActionLogService) Get(ctx context.Context, id int64) (types.ActionLog, error) {
	entry, err := s.logs.Get(ctx, s.store.DB(), id)
	return entry, translate(err, msgActionLogNotFound)
}

func (s *ActionLogService) List(ctx context.Context) ([]types.ActionLog, error) {
	entries, err := s.logs.List(ctx, s.store.DB())
	return entries, translate(err, msgActionLogNotFound)
}
