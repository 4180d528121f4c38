package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/draftlab/drawing-server/internal/domain/job"
)

func newTestQueue() *Queue {
	return New(Config{
		JobTimeout:     time.Minute,
		WatchdogPeriod: time.Second,
		RetentionAge:   time.Hour,
	}, zerolog.Nop())
}

func TestEnqueueCoalescesLiveJob(t *testing.T) {
	q := newTestQueue()

	first, coalesced, err := q.Enqueue("dwg_a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coalesced {
		t.Error("first submission reported as coalesced")
	}

	second, coalesced, err := q.Enqueue("dwg_a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !coalesced {
		t.Error("duplicate submission not coalesced")
	}
	if second.ID != first.ID {
		t.Errorf("coalesced job id %s, want %s", second.ID, first.ID)
	}

	// A different file gets its own job.
	other, coalesced, err := q.Enqueue("dwg_b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coalesced || other.ID == first.ID {
		t.Error("distinct file was coalesced with another file's job")
	}
}

func TestEnqueueAfterTerminalStartsFresh(t *testing.T) {
	q := newTestQueue()

	first, _, _ := q.Enqueue("dwg_a")
	if err := q.MarkAnalyzing(first.ID); err != nil {
		t.Fatalf("mark analyzing: %v", err)
	}
	if err := q.MarkCompleted(first.ID); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	second, coalesced, err := q.Enqueue("dwg_a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coalesced {
		t.Error("re-analysis after completion was coalesced")
	}
	if second.ID == first.ID {
		t.Error("terminal job was reused")
	}

	if latest, _ := q.LatestJobID("dwg_a"); latest != second.ID {
		t.Errorf("latest job = %s, want %s", latest, second.ID)
	}
}

func TestDequeueSkipsTerminalJobs(t *testing.T) {
	q := newTestQueue()

	j, _, _ := q.Enqueue("dwg_a")
	if err := q.Cancel(j.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got != nil {
		t.Errorf("dequeued cancelled job %s", got.ID)
	}
}

func TestProgressIsMonotonicAndClamped(t *testing.T) {
	q := newTestQueue()

	j, _, _ := q.Enqueue("dwg_a")
	if err := q.ReportProgress(j.ID, 10); !errors.Is(err, job.ErrInvalidTransition) {
		t.Errorf("progress on pending job: error = %v, want ErrInvalidTransition", err)
	}

	if err := q.MarkAnalyzing(j.ID); err != nil {
		t.Fatalf("mark analyzing: %v", err)
	}

	steps := []int{10, 50, 30, 50, 150}
	for _, p := range steps {
		if err := q.ReportProgress(j.ID, p); err != nil {
			t.Fatalf("report progress %d: %v", p, err)
		}
	}

	got, _ := q.Get(j.ID)
	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100 after clamp", got.Progress)
	}
}

func TestCompletionForcesFullProgress(t *testing.T) {
	q := newTestQueue()

	j, _, _ := q.Enqueue("dwg_a")
	q.MarkAnalyzing(j.ID)
	q.ReportProgress(j.ID, 42)
	if err := q.MarkCompleted(j.ID); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	got, _ := q.Get(j.ID)
	if got.Status != job.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100", got.Progress)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
}

func TestTerminalJobsRejectFurtherTransitions(t *testing.T) {
	q := newTestQueue()

	j, _, _ := q.Enqueue("dwg_a")
	q.MarkAnalyzing(j.ID)
	q.MarkCompleted(j.ID)

	if err := q.MarkFailed(j.ID, errors.New("late failure"), ""); err == nil {
		t.Error("failed transition accepted on completed job")
	}
	if err := q.MarkAnalyzing(j.ID); err == nil {
		t.Error("analyzing transition accepted on completed job")
	}
}

func TestSubscribeReplaysFullHistory(t *testing.T) {
	q := newTestQueue()

	j, _, _ := q.Enqueue("dwg_a")
	q.MarkAnalyzing(j.ID)
	q.ReportProgress(j.ID, 40)
	q.ReportProgress(j.ID, 80)

	// Late subscriber attaches after four events already happened.
	sub, err := q.Subscribe(j.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	q.MarkCompleted(j.ID)

	var events []job.Event
	for ev := range sub.Events() {
		events = append(events, ev)
	}

	if len(events) != 5 {
		t.Fatalf("received %d events, want 5", len(events))
	}
	for i, ev := range events {
		if ev.Seq != i+1 {
			t.Errorf("event %d has seq %d, want %d", i, ev.Seq, i+1)
		}
	}

	terminal := 0
	for _, ev := range events {
		if ev.Terminal() {
			terminal++
		}
	}
	if terminal != 1 {
		t.Errorf("observed %d terminal events, want exactly 1", terminal)
	}
	if last := events[len(events)-1]; last.Status != job.StatusCompleted || last.Progress != 100 {
		t.Errorf("last event = %+v, want completed at 100", last)
	}
}

func TestSubscribeToTerminalJobClosesAfterReplay(t *testing.T) {
	q := newTestQueue()

	j, _, _ := q.Enqueue("dwg_a")
	q.MarkAnalyzing(j.ID)
	q.MarkFailed(j.ID, errors.New("engine down"), "engine down")

	sub, err := q.Subscribe(j.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var events []job.Event
	for ev := range sub.Events() {
		events = append(events, ev)
	}
	if len(events) != 3 {
		t.Fatalf("received %d events, want 3", len(events))
	}
	if last := events[len(events)-1]; last.Status != job.StatusFailed || last.Error == "" {
		t.Errorf("last event = %+v, want failed with error message", last)
	}
}

func TestCancelPendingJobFailsImmediately(t *testing.T) {
	q := newTestQueue()

	j, _, _ := q.Enqueue("dwg_a")
	if err := q.Cancel(j.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, _ := q.Get(j.ID)
	if got.Status != job.StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}

	// File becomes eligible for a fresh submission.
	if _, coalesced, _ := q.Enqueue("dwg_a"); coalesced {
		t.Error("new submission coalesced with cancelled job")
	}
}

func TestCancelAnalyzingJobInvokesExecutionCancel(t *testing.T) {
	q := newTestQueue()

	j, _, _ := q.Enqueue("dwg_a")
	q.MarkAnalyzing(j.ID)

	invoked := false
	q.AttachCancel(j.ID, func() { invoked = true })

	if err := q.Cancel(j.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !invoked {
		t.Error("execution context cancel not invoked")
	}

	got, _ := q.Get(j.ID)
	if got.Status != job.StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
}

func TestCancelTerminalJobRejected(t *testing.T) {
	q := newTestQueue()

	j, _, _ := q.Enqueue("dwg_a")
	q.MarkAnalyzing(j.ID)
	q.MarkCompleted(j.ID)

	if err := q.Cancel(j.ID); !errors.Is(err, job.ErrInvalidTransition) {
		t.Errorf("cancel completed job: error = %v, want ErrInvalidTransition", err)
	}
}

func TestWatchdogFailsStuckJobs(t *testing.T) {
	q := New(Config{
		JobTimeout:     10 * time.Millisecond,
		WatchdogPeriod: time.Second,
		RetentionAge:   time.Hour,
	}, zerolog.Nop())

	j, _, _ := q.Enqueue("dwg_a")
	q.MarkAnalyzing(j.ID)

	invoked := false
	q.AttachCancel(j.ID, func() { invoked = true })

	time.Sleep(20 * time.Millisecond)
	q.sweep()

	got, _ := q.Get(j.ID)
	if got.Status != job.StatusFailed {
		t.Errorf("status = %s, want failed after timeout", got.Status)
	}
	if !invoked {
		t.Error("stuck job's execution cancel not invoked")
	}
}

func TestSweepExpiresOldTerminalJobs(t *testing.T) {
	q := New(Config{
		JobTimeout:     time.Minute,
		WatchdogPeriod: time.Second,
		RetentionAge:   time.Nanosecond,
	}, zerolog.Nop())

	j, _, _ := q.Enqueue("dwg_a")
	q.MarkAnalyzing(j.ID)
	q.MarkCompleted(j.ID)

	time.Sleep(time.Millisecond)
	q.sweep()

	if _, err := q.Get(j.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expired job still queryable: %v", err)
	}
}

func TestDequeueReturnsPendingJob(t *testing.T) {
	q := newTestQueue()

	enqueued, _, _ := q.Enqueue("dwg_a")
	got, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got == nil || got.ID != enqueued.ID {
		t.Fatalf("dequeued %+v, want job %s", got, enqueued.ID)
	}

	// Queue is drained now.
	if next, _ := q.Dequeue(context.Background()); next != nil {
		t.Errorf("second dequeue returned %s, want nil", next.ID)
	}
}
