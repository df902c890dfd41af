package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/protodo/core/internal/domain/entities"
	"github.com/protodo/core/internal/infrastructure/logger"
	"github.com/protodo/core/internal/ports"
)

// SyncService pushes and pulls the task collection against the remote
// document store. Operations are user triggered and not cancellable once
// started; overlapping push and pull is an unresolved race, so only one
// sync operation may be in flight at a time.
type SyncService struct {
	store  *TaskStore
	client ports.SyncClient
	logger *logger.Logger
	busy   atomic.Bool
}

// NewSyncService creates a new sync service
func NewSyncService(store *TaskStore, client ports.SyncClient, appLogger *logger.Logger) *SyncService {
	return &SyncService{
		store:  store,
		client: client,
		logger: appLogger.WithComponent("sync"),
	}
}

// PushAll uploads the current collection for the given user, returning the
// outcome per task.
func (s *SyncService) PushAll(ctx context.Context, userID string) ([]ports.PushResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, entities.ErrSyncInFlight
	}
	defer s.busy.Store(false)

	tasks, _ := s.store.Snapshot()
	results, err := s.client.Push(ctx, userID, tasks)
	if err != nil {
		return nil, fmt.Errorf("push failed: %w", err)
	}

	synced := 0
	for _, r := range results {
		if r.Synced {
			synced++
		}
	}
	s.logger.Infow("Pushed tasks to cloud", "user_id", userID, "synced", synced, "total", len(results))
	return results, nil
}

// PullReplace downloads the user's remote collection and fully replaces
// local state, re-deriving the order index from arrival order. A failed
// pull leaves the prior state untouched.
func (s *SyncService) PullReplace(ctx context.Context, userID string) (int, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return 0, entities.ErrSyncInFlight
	}
	defer s.busy.Store(false)

	tasks, err := s.client.Pull(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("pull failed: %w", err)
	}

	if err := s.store.ReplaceAll(ctx, tasks, nil); err != nil {
		return 0, err
	}

	s.logger.Infow("Pulled tasks from cloud", "user_id", userID, "count", len(tasks))
	return len(tasks), nil
}
