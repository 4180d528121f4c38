package jobqueue

import (
	"github.com/google/uuid"

	"github.com/draftlab/drawing-server/internal/domain/job"
)

// Subscription is one observer's cursor over a job's ordered event
// sequence. Events arrive in transition order, none twice, and the channel
// closes after the single terminal event.
type Subscription struct {
	id     string
	jobID  string
	events chan job.Event
	queue  *Queue
}

// Events returns the ordered event stream.
func (s *Subscription) Events() <-chan job.Event {
	return s.events
}

// Close detaches the subscriber. Safe to call after the channel closed.
func (s *Subscription) Close() {
	s.queue.unsubscribe(s.jobID, s.id)
}

// Subscribe attaches an observer to the job. The full event log recorded so
// far is replayed first, so late subscribers see the same sequence as early
// ones.
func (q *Queue) Subscribe(jobID string) (*Subscription, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state, ok := q.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}

	sub := &Subscription{
		id:     uuid.NewString(),
		jobID:  jobID,
		events: make(chan job.Event, eventChannelCap),
		queue:  q,
	}
	for _, ev := range state.log {
		sub.events <- ev
	}
	if state.job.Status.IsTerminal() {
		close(sub.events)
		return sub, nil
	}
	state.subscribers[sub.id] = sub.events
	return sub, nil
}

func (q *Queue) unsubscribe(jobID, subID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	state, ok := q.jobs[jobID]
	if !ok {
		return
	}
	if ch, ok := state.subscribers[subID]; ok {
		delete(state.subscribers, subID)
		close(ch)
	}
}

// publishLocked appends the job's current state to its event log and fans
// it out. Callers hold q.mu. Subscriber channels are sized above the
// per-job event bound, so sends cannot block; the default arm guards
// against a misbehaving reader anyway.
func (q *Queue) publishLocked(state *jobState, msg string) {
	ev := job.Event{
		Seq:      len(state.log) + 1,
		JobID:    state.job.ID,
		FileID:   state.job.FileID,
		Status:   state.job.Status,
		Progress: state.job.Progress,
		Error:    msg,
	}
	state.log = append(state.log, ev)

	for id, ch := range state.subscribers {
		select {
		case ch <- ev:
		default:
			q.log.Warn().Str("job_id", state.job.ID).Str("subscriber", id).Msg("subscriber buffer full, dropping event")
		}
	}
	if ev.Terminal() {
		for id, ch := range state.subscribers {
			delete(state.subscribers, id)
			close(ch)
		}
	}
}
