package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"chaintask-client/pkg/notify"
)

func newTestService(chain *fakeChain, meta *fakeMeta) *Service {
	return NewService(chain, meta, nil, notify.New(nil), time.Second)
}

func TestFetch_MergesChainAndMetadata(t *testing.T) {
	chain := &fakeChain{tasks: []OnChainTask{
		{ID: 1, Content: "first", Owner: owner},
		{ID: 2, Content: "second", Completed: true, Owner: owner},
	}}
	meta := newFakeMeta()
	meta.meta = []Metadata{
		{TaskID: 2, Priority: PriorityHigh, Category: "work"},
		{TaskID: 50, Category: "deleted on chain"},
	}
	svc := newTestService(chain, meta)

	got, err := svc.Fetch(context.Background(), owner)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(got))
	}
	if got[1].Priority != PriorityHigh || got[1].Category != "work" {
		t.Fatalf("expected metadata joined onto task 2, got %+v", got[1])
	}
}

func TestFetch_ChainErrorLeavesSnapshotUntouched(t *testing.T) {
	chain := &fakeChain{tasks: []OnChainTask{{ID: 1, Content: "x", Owner: owner}}}
	svc := newTestService(chain, newFakeMeta())

	if _, err := svc.Fetch(context.Background(), owner); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	chain.mu.Lock()
	chain.err = errors.New("rpc down")
	chain.mu.Unlock()

	if _, err := svc.Fetch(context.Background(), owner); err == nil {
		t.Fatal("expected fetch error")
	}
	if got := svc.View(Filter{}, time.Now()); len(got) != 1 {
		t.Fatalf("expected stale snapshot preserved, got %d tasks", len(got))
	}
}

func TestFetch_RetriesQueuedPatchRepairs(t *testing.T) {
	chain := &fakeChain{tasks: []OnChainTask{{ID: 1, Content: "x", Owner: owner}}}
	meta := newFakeMeta()
	svc := newTestService(chain, meta)

	status := StatusCompleted
	svc.RecordPending(1, MetadataPatch{Status: &status})

	meta.mu.Lock()
	meta.patchErr = errors.New("still down")
	meta.mu.Unlock()
	if _, err := svc.Fetch(context.Background(), owner); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if svc.PendingCount() != 1 {
		t.Fatalf("expected repair still queued, got %d", svc.PendingCount())
	}

	meta.mu.Lock()
	meta.patchErr = nil
	meta.mu.Unlock()
	if _, err := svc.Fetch(context.Background(), owner); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if svc.PendingCount() != 0 {
		t.Fatalf("expected repair drained, got %d", svc.PendingCount())
	}
	if len(meta.patches[1]) != 1 {
		t.Fatalf("expected repair applied once, got %d", len(meta.patches[1]))
	}
}

func TestFetch_RetriesQueuedDraftRepairs(t *testing.T) {
	chain := &fakeChain{}
	meta := newFakeMeta()
	svc := newTestService(chain, meta)

	svc.RecordPendingDraft(MetadataDraft{Content: "late metadata", Status: DefaultStatus, Priority: DefaultPriority})

	if _, err := svc.Fetch(context.Background(), owner); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if svc.PendingCount() != 0 {
		t.Fatalf("expected draft repair drained, got %d", svc.PendingCount())
	}
	if len(meta.drafts) != 1 {
		t.Fatalf("expected draft created, got %d", len(meta.drafts))
	}
}

func TestGet_LooksUpSnapshotByID(t *testing.T) {
	chain := &fakeChain{tasks: []OnChainTask{{ID: 3, Content: "find me", Owner: owner}}}
	svc := newTestService(chain, newFakeMeta())

	if _, err := svc.Fetch(context.Background(), owner); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	got, ok := svc.Get(3)
	if !ok || got.Content != "find me" {
		t.Fatalf("expected task 3, got %+v ok=%v", got, ok)
	}
	if _, ok := svc.Get(4); ok {
		t.Fatal("expected miss for unknown id")
	}
}

func TestClear_WipesSnapshotAndQueue(t *testing.T) {
	chain := &fakeChain{tasks: []OnChainTask{{ID: 1, Content: "x", Owner: owner}}}
	svc := newTestService(chain, newFakeMeta())

	if _, err := svc.Fetch(context.Background(), owner); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	status := StatusCompleted
	svc.RecordPending(1, MetadataPatch{Status: &status})

	svc.Clear(context.Background())

	if got := svc.View(Filter{}, time.Now()); len(got) != 0 {
		t.Fatalf("expected empty view after clear, got %d tasks", len(got))
	}
	if svc.PendingCount() != 0 {
		t.Fatalf("expected empty repair queue after clear, got %d", svc.PendingCount())
	}
}
