package task

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Status is the off-chain task status kept by the backend.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusOnHold    Status = "On Hold"
	StatusPostponed Status = "Postponed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusOnHold, StatusPostponed:
		return true
	}
	return false
}

// Priority is the off-chain task priority kept by the backend.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Defaults applied when metadata is missing for an on-chain task.
const (
	DefaultStatus   = StatusPending
	DefaultPriority = PriorityMedium
)

// Date is a calendar date carried over the wire as "2006-01-02".
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func ParseDateString(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	// the backend sometimes sends full timestamps for due dates
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// OnChainTask mirrors the contract's task record. The contract is the single
// source of truth; these records change only through confirmed transactions.
type OnChainTask struct {
	ID        int64
	Content   string
	Completed bool
	Owner     common.Address
}

// Metadata is the off-chain record kept by the backend, keyed by the
// on-chain task id. Its lifecycle is independent of the chain record: it may
// be stale or absent for a given id.
type Metadata struct {
	TaskID   int64    `json:"taskId"`
	DueDate  *Date    `json:"dueDate,omitempty"`
	Priority Priority `json:"priority,omitempty"`
	Status   Status   `json:"status,omitempty"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// MetadataDraft is the payload for creating a fresh metadata record
// alongside createTask. The backend correlates it with the chain record.
type MetadataDraft struct {
	Content  string   `json:"content"`
	DueDate  *Date    `json:"dueDate,omitempty"`
	Priority Priority `json:"priority,omitempty"`
	Status   Status   `json:"status,omitempty"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// MetadataPatch is a partial update for PATCH /tasks/{id}/metadata.
// Nil fields are left untouched by the backend.
type MetadataPatch struct {
	DueDate  *Date     `json:"dueDate,omitempty"`
	Priority *Priority `json:"priority,omitempty"`
	Status   *Status   `json:"status,omitempty"`
	Category *string   `json:"category,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
}

// MetadataQuery narrows GET /tasks server-side. Zero values mean "all".
type MetadataQuery struct {
	Status   Status
	Priority Priority
	Tag      string
	Category string
}

// DisplayTask is the rendered record: the on-chain task joined with its
// metadata, with deterministic defaults where metadata is absent. It is
// derived, never persisted.
type DisplayTask struct {
	TaskID    int64    `json:"taskId"`
	Content   string   `json:"content"`
	Completed bool     `json:"completed"`
	Owner     string   `json:"owner"`
	DueDate   *Date    `json:"dueDate,omitempty"`
	Priority  Priority `json:"priority"`
	Status    Status   `json:"status"`
	Category  string   `json:"category,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Merge left-joins the on-chain collection with metadata by task id.
// Metadata without a surviving chain record is discarded; chain records
// without metadata get defaults. The result is ordered by ascending id so
// repeated merges over the same snapshot are stable.
func Merge(chain []OnChainTask, meta []Metadata) []DisplayTask {
	byID := make(map[int64]Metadata, len(meta))
	for _, m := range meta {
		byID[m.TaskID] = m
	}

	merged := make([]DisplayTask, 0, len(chain))
	for _, t := range chain {
		d := DisplayTask{
			TaskID:    t.ID,
			Content:   t.Content,
			Completed: t.Completed,
			Owner:     t.Owner.Hex(),
			Priority:  DefaultPriority,
			Status:    DefaultStatus,
		}
		if m, ok := byID[t.ID]; ok {
			d.DueDate = m.DueDate
			d.Category = m.Category
			d.Tags = m.Tags
			if m.Priority.Valid() {
				d.Priority = m.Priority
			}
			if m.Status.Valid() {
				d.Status = m.Status
			}
		}
		merged = append(merged, d)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].TaskID < merged[j].TaskID })
	return merged
}
