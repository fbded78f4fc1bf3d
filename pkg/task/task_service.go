package task

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"chaintask-client/pkg/cache"
	"chaintask-client/pkg/notify"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// ChainReader reads task state from the contract.
type ChainReader interface {
	ListOwnerTasks(ctx context.Context, owner common.Address) ([]OnChainTask, error)
	// ReadTask reads one record by id; ok is false for deleted slots.
	ReadTask(ctx context.Context, id int64) (OnChainTask, bool, error)
}

// MetadataStore is the off-chain metadata surface of the backend.
type MetadataStore interface {
	ListTaskMetadata(ctx context.Context, q MetadataQuery) ([]Metadata, error)
	CreateTaskMetadata(ctx context.Context, draft MetadataDraft) error
	PatchTaskMetadata(ctx context.Context, id int64, patch MetadataPatch) error
}

// Service produces the reconciled task view from the two asynchronously
// updated sources. The view is only as fresh as the last Fetch; it never
// polls. Filtering runs purely against the last-fetched snapshot.
//
// The service also owns the pending-reconciliation queue: metadata writes
// that failed after their transaction confirmed are retried idempotently on
// every Fetch until the stores converge again.
type Service struct {
	chain       ChainReader
	meta        MetadataStore
	cache       *cache.Cache
	notifier    *notify.Notifier
	snapshotTTL time.Duration

	mu            sync.Mutex
	owner         common.Address
	snapshot      []DisplayTask
	pending       map[int64]MetadataPatch
	pendingDrafts []MetadataDraft
	pendingSyncs  map[int64]struct{}
}

func NewService(chain ChainReader, meta MetadataStore, c *cache.Cache, n *notify.Notifier, snapshotTTL time.Duration) *Service {
	return &Service{
		chain:        chain,
		meta:         meta,
		cache:        c,
		notifier:     n,
		snapshotTTL:  snapshotTTL,
		pending:      make(map[int64]MetadataPatch),
		pendingSyncs: make(map[int64]struct{}),
	}
}

// Fetch reads both sources, retries any pending metadata repairs, and
// replaces the snapshot with the merged result.
func (s *Service) Fetch(ctx context.Context, owner common.Address) ([]DisplayTask, error) {
	s.repairPending(ctx)

	chainTasks, err := s.readChain(ctx, owner)
	if err != nil {
		return nil, err
	}

	meta, err := s.meta.ListTaskMetadata(ctx, MetadataQuery{})
	if err != nil {
		return nil, err
	}

	merged := Merge(chainTasks, meta)

	s.mu.Lock()
	s.owner = owner
	s.snapshot = merged
	s.mu.Unlock()

	return merged, nil
}

// View filters the last-fetched snapshot. It is synchronous and pure; no
// network I/O happens on this path.
func (s *Service) View(f Filter, now time.Time) []DisplayTask {
	s.mu.Lock()
	snapshot := s.snapshot
	s.mu.Unlock()
	return f.Apply(snapshot, now)
}

// Get returns the snapshot entry for a task id.
func (s *Service) Get(id int64) (DisplayTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.snapshot {
		if t.TaskID == id {
			return t, true
		}
	}
	return DisplayTask{}, false
}

// Invalidate drops the cached on-chain snapshot so the next Fetch reads the
// contract again. Called after confirmed transactions and inbound change
// events.
func (s *Service) Invalidate(ctx context.Context) {
	s.mu.Lock()
	owner := s.owner
	s.mu.Unlock()
	if err := s.cache.Delete(ctx, snapshotKey(owner)); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate snapshot cache")
	}
}

// RecordPending queues a metadata patch that failed after its transaction
// confirmed. It will be retried on subsequent fetches.
func (s *Service) RecordPending(id int64, patch MetadataPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = patch
}

// RecordPendingDraft queues a metadata create that failed after its
// transaction confirmed.
func (s *Service) RecordPendingDraft(draft MetadataDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingDrafts = append(s.pendingDrafts, draft)
}

// RecordPendingSync queues a task whose metadata status must be re-derived
// from the chain record because the post-confirmation read failed.
func (s *Service) RecordPendingSync(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingSyncs[id] = struct{}{}
}

// PendingCount reports how many metadata repairs are outstanding.
func (s *Service) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) + len(s.pendingDrafts) + len(s.pendingSyncs)
}

// Clear wipes the snapshot and the repair queue. Used on logout.
func (s *Service) Clear(ctx context.Context) {
	s.mu.Lock()
	owner := s.owner
	s.snapshot = nil
	s.pending = make(map[int64]MetadataPatch)
	s.pendingDrafts = nil
	s.pendingSyncs = make(map[int64]struct{})
	s.owner = common.Address{}
	s.mu.Unlock()
	if err := s.cache.Delete(ctx, snapshotKey(owner)); err != nil {
		log.Warn().Err(err).Msg("Failed to clear snapshot cache")
	}
}

func (s *Service) readChain(ctx context.Context, owner common.Address) ([]OnChainTask, error) {
	key := snapshotKey(owner)
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		var tasks []OnChainTask
		if err := json.Unmarshal([]byte(cached), &tasks); err == nil {
			log.Debug().Str("key", key).Msg("On-chain snapshot served from cache")
			return tasks, nil
		}
		log.Warn().Str("key", key).Msg("Discarding unreadable cached snapshot")
	}

	tasks, err := s.chain.ListOwnerTasks(ctx, owner)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(tasks); err == nil {
		if err := s.cache.SetWithExpire(ctx, key, string(encoded), s.snapshotTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to cache on-chain snapshot")
		}
	}
	return tasks, nil
}

func (s *Service) repairPending(ctx context.Context) {
	s.mu.Lock()
	patches := make(map[int64]MetadataPatch, len(s.pending))
	for id, p := range s.pending {
		patches[id] = p
	}
	drafts := make([]MetadataDraft, len(s.pendingDrafts))
	copy(drafts, s.pendingDrafts)
	syncs := make([]int64, 0, len(s.pendingSyncs))
	for id := range s.pendingSyncs {
		syncs = append(syncs, id)
	}
	s.mu.Unlock()

	for id, patch := range patches {
		if err := s.meta.PatchTaskMetadata(ctx, id, patch); err != nil {
			log.Warn().Err(err).Int64("taskId", id).Msg("Metadata repair still failing")
			continue
		}
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		s.notifier.Info("Repaired metadata for task " + strconv.FormatInt(id, 10))
	}

	var remaining []MetadataDraft
	for _, draft := range drafts {
		if err := s.meta.CreateTaskMetadata(ctx, draft); err != nil {
			log.Warn().Err(err).Str("content", draft.Content).Msg("Metadata create repair still failing")
			remaining = append(remaining, draft)
		}
	}
	s.mu.Lock()
	s.pendingDrafts = remaining
	s.mu.Unlock()

	for _, id := range syncs {
		rec, ok, err := s.chain.ReadTask(ctx, id)
		if err != nil {
			log.Warn().Err(err).Int64("taskId", id).Msg("Status sync repair still failing")
			continue
		}
		if ok {
			status := StatusPending
			if rec.Completed {
				status = StatusCompleted
			}
			if err := s.meta.PatchTaskMetadata(ctx, id, MetadataPatch{Status: &status}); err != nil {
				log.Warn().Err(err).Int64("taskId", id).Msg("Status sync repair still failing")
				continue
			}
			s.notifier.Info("Repaired metadata for task " + strconv.FormatInt(id, 10))
		}
		// deleted records drop out; the merge discards their metadata
		s.mu.Lock()
		delete(s.pendingSyncs, id)
		s.mu.Unlock()
	}
}

func snapshotKey(owner common.Address) string {
	return "chaintask:" + strings.ToLower(owner.Hex()) + ":onchain"
}
