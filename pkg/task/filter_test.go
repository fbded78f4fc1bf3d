package task

import (
	"testing"
	"time"
)

func date(s string) *Date {
	d, err := ParseDateString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func sampleTasks() []DisplayTask {
	return []DisplayTask{
		{TaskID: 1, Content: "Buy groceries", Status: StatusPending, Priority: PriorityLow, DueDate: date("2026-08-30"), Tags: []string{"errands"}},
		{TaskID: 2, Content: "Write report", Status: StatusCompleted, Priority: PriorityHigh, DueDate: date("2026-09-01"), Tags: []string{"work", "writing"}},
		{TaskID: 3, Content: "Plan trip", Status: StatusOnHold, Priority: PriorityMedium, DueDate: date("2026-09-10"), Tags: []string{"travel"}},
		{TaskID: 4, Content: "Call dentist", Status: StatusPostponed, Priority: PriorityMedium},
	}
}

var now = time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)

func ids(tasks []DisplayTask) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.TaskID
	}
	return out
}

func assertIDs(t *testing.T, got []DisplayTask, want ...int64) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, gotIDs)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("expected ids %v, got %v", want, gotIDs)
		}
	}
}

func TestFilter_ZeroValueMatchesAll(t *testing.T) {
	got := Filter{}.Apply(sampleTasks(), now)
	assertIDs(t, got, 1, 2, 3, 4)
}

func TestFilter_QueryIsCaseInsensitive(t *testing.T) {
	got := Filter{Query: "REPORT"}.Apply(sampleTasks(), now)
	assertIDs(t, got, 2)
}

func TestFilter_QuerySearchesTagsToo(t *testing.T) {
	got := Filter{Query: "errands"}.Apply(sampleTasks(), now)
	assertIDs(t, got, 1)
}

func TestFilter_AllLiteralDisablesCriterion(t *testing.T) {
	got := Filter{Status: "All", Priority: "All", Tag: "All", Due: DueAll}.Apply(sampleTasks(), now)
	assertIDs(t, got, 1, 2, 3, 4)
}

func TestFilter_Status(t *testing.T) {
	got := Filter{Status: "On Hold"}.Apply(sampleTasks(), now)
	assertIDs(t, got, 3)
}

func TestFilter_Priority(t *testing.T) {
	got := Filter{Priority: "Medium"}.Apply(sampleTasks(), now)
	assertIDs(t, got, 3, 4)
}

func TestFilter_TagSubstring(t *testing.T) {
	got := Filter{Tag: "writ"}.Apply(sampleTasks(), now)
	assertIDs(t, got, 2)
}

func TestFilter_DueBuckets(t *testing.T) {
	tasks := sampleTasks()

	assertIDs(t, Filter{Due: DueOverdue}.Apply(tasks, now), 1)
	assertIDs(t, Filter{Due: DueToday}.Apply(tasks, now), 2)
	assertIDs(t, Filter{Due: DueUpcoming}.Apply(tasks, now), 3)
}

func TestFilter_NoDueDateOnlyMatchesAll(t *testing.T) {
	tasks := sampleTasks()

	for _, bucket := range []DueBucket{DueOverdue, DueToday, DueUpcoming} {
		for _, got := range (Filter{Due: bucket}).Apply(tasks, now) {
			if got.TaskID == 4 {
				t.Fatalf("task without due date matched bucket %q", bucket)
			}
		}
	}
	assertIDs(t, Filter{Due: DueAll}.Apply(tasks, now), 1, 2, 3, 4)
}

func TestFilter_DueTodayIgnoresTimeOfDay(t *testing.T) {
	// a task due later today is Today even late in the evening
	lateEvening := time.Date(2026, 9, 1, 23, 59, 0, 0, time.UTC)
	assertIDs(t, Filter{Due: DueToday}.Apply(sampleTasks(), lateEvening), 2)
}

func TestFilter_CriteriaAreConjunctive(t *testing.T) {
	got := Filter{Priority: "Medium", Due: DueUpcoming}.Apply(sampleTasks(), now)
	assertIDs(t, got, 3)
}

func TestFilter_PreservesOrder(t *testing.T) {
	got := Filter{Priority: "Medium"}.Apply(sampleTasks(), now)
	if len(got) != 2 || got[0].TaskID > got[1].TaskID {
		t.Fatalf("expected snapshot order preserved, got %v", ids(got))
	}
}
