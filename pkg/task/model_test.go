package task

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	owner = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func TestMerge_AppliesDefaultsWhenMetadataAbsent(t *testing.T) {
	chain := []OnChainTask{{ID: 7, Content: "orphan on chain", Owner: owner}}

	merged := Merge(chain, nil)
	if len(merged) != 1 {
		t.Fatalf("expected 1 task, got %d", len(merged))
	}
	if merged[0].Status != StatusPending {
		t.Fatalf("expected default status %q, got %q", StatusPending, merged[0].Status)
	}
	if merged[0].Priority != PriorityMedium {
		t.Fatalf("expected default priority %q, got %q", PriorityMedium, merged[0].Priority)
	}
}

func TestMerge_DiscardsOrphanMetadata(t *testing.T) {
	chain := []OnChainTask{{ID: 1, Content: "alive", Owner: owner}}
	meta := []Metadata{
		{TaskID: 1, Category: "home"},
		{TaskID: 99, Category: "deleted on chain"},
	}

	merged := Merge(chain, meta)
	if len(merged) != 1 {
		t.Fatalf("expected orphan metadata discarded, got %d tasks", len(merged))
	}
	if merged[0].Category != "home" {
		t.Fatalf("expected category %q, got %q", "home", merged[0].Category)
	}
}

func TestMerge_InvalidEnumValuesFallBackToDefaults(t *testing.T) {
	chain := []OnChainTask{{ID: 1, Content: "x", Owner: owner}}
	meta := []Metadata{{TaskID: 1, Status: "Archived", Priority: "Urgent"}}

	merged := Merge(chain, meta)
	if merged[0].Status != DefaultStatus || merged[0].Priority != DefaultPriority {
		t.Fatalf("expected defaults for invalid enums, got %q/%q", merged[0].Status, merged[0].Priority)
	}
}

func TestMerge_SortedByAscendingID(t *testing.T) {
	chain := []OnChainTask{
		{ID: 5, Owner: owner},
		{ID: 2, Owner: owner},
		{ID: 9, Owner: owner},
	}

	merged := Merge(chain, nil)
	for i := 1; i < len(merged); i++ {
		if merged[i-1].TaskID >= merged[i].TaskID {
			t.Fatalf("expected ascending ids, got %v", ids(merged))
		}
	}
}

func TestDate_UnmarshalAcceptsTimestamps(t *testing.T) {
	var m Metadata
	payload := `{"taskId":1,"dueDate":"2026-09-15T00:00:00.000Z"}`
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.DueDate == nil || m.DueDate.Format("2006-01-02") != "2026-09-15" {
		t.Fatalf("expected due date 2026-09-15, got %v", m.DueDate)
	}
}

func TestDate_MarshalUsesDateOnly(t *testing.T) {
	d := date("2026-09-15")
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2026-09-15"` {
		t.Fatalf("expected %q, got %s", `"2026-09-15"`, data)
	}
}
