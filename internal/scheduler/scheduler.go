// Package scheduler owns the in-memory timers for running entry
// sessions. The durable session store is the source of truth for
// "where was I"; the timers here are a derived, disposable
// optimization that is rebuilt from stored timestamps on every
// restart. Every timer fire and every manual action goes through a
// store transition first, and only the caller whose transition
// actually changed state emits the matching notification — that
// single gate is what keeps started/warning/ended in order under
// races between timers and manual ends.
package scheduler

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"github.com/iliyamo/venue-entry-service/internal/model"
	"github.com/iliyamo/venue-entry-service/internal/queue"
	"github.com/iliyamo/venue-entry-service/internal/store"
)

// ErrAlreadyRunning is returned by Start for a session that is not in
// Scheduled. A second "start timer" click must not reset the clock.
var ErrAlreadyRunning = errors.New("scheduler: session already started")

// NotificationSink receives notification requests. Delivery is
// best-effort: the scheduler logs failures and never lets them block
// or roll back a state transition.
type NotificationSink interface {
	Notify(ctx context.Context, ev queue.NotificationEvent) error
}

// ticketTimers holds the owned timer handles for one session. No
// session shares a timer with another.
type ticketTimers struct {
	warning *time.Timer
	end     *time.Timer
}

func (t *ticketTimers) stop() {
	if t.warning != nil {
		t.warning.Stop()
	}
	if t.end != nil {
		t.end.Stop()
	}
}

// Scheduler drives session state through time.
type Scheduler struct {
	store         store.SessionStore
	sink          NotificationSink
	warningOffset time.Duration
	now           func() time.Time

	mu     sync.Mutex
	timers map[string]*ticketTimers
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithNow overrides the scheduler's time source. Tests use it to
// simulate restarts at arbitrary instants.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New builds a scheduler. warningOffset is how long before the end of
// a session the warning notification fires; sessions shorter than the
// offset never get one.
func New(st store.SessionStore, sink NotificationSink, warningOffset time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:         st,
		sink:          sink,
		warningOffset: warningOffset,
		now:           time.Now,
		timers:        map[string]*ticketTimers{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the entry window for a scheduled session: stamps the
// start time, arms the warning and end timers and emits the started
// notification. Only legal from Scheduled; anything else is
// ErrAlreadyRunning and leaves the durable record untouched.
func (s *Scheduler) Start(ctx context.Context, ticketID string) (model.Session, error) {
	sess, err := s.store.Get(ctx, ticketID)
	if err != nil {
		return model.Session{}, err
	}
	if sess.State != model.StateScheduled {
		return model.Session{}, ErrAlreadyRunning
	}
	started, err := s.store.Transition(ctx, ticketID, model.StateRunning, s.now())
	if errors.Is(err, store.ErrInvalidTransition) {
		// Lost a race with another start.
		return model.Session{}, ErrAlreadyRunning
	}
	if err != nil {
		return model.Session{}, err
	}
	s.arm(started)
	s.emit(started, queue.EventSessionStarted, 0)
	return started, nil
}

// EndNow forces a Running or WarningSent session to Ended before its
// timer fires, cancelling any pending timers. The missed warning is
// skipped entirely: only the terminal event fires, so notifications
// can never arrive out of order.
func (s *Scheduler) EndNow(ctx context.Context, ticketID string) (model.Session, error) {
	s.mu.Lock()
	if t, ok := s.timers[ticketID]; ok {
		t.stop()
		delete(s.timers, ticketID)
	}
	s.mu.Unlock()

	ended, err := s.store.Transition(ctx, ticketID, model.StateEnded, s.now())
	if err != nil {
		return model.Session{}, err
	}
	s.emit(ended, queue.EventSessionEnded, 0)
	return ended, nil
}

// Recover rebuilds the timer set from the durable store. Sessions
// whose warning instant has passed get the missed WarningSent
// transition applied instantly before the end timer is re-armed;
// sessions past their end are ended immediately. No active session is
// ever dropped on restart.
func (s *Scheduler) Recover(ctx context.Context) error {
	active, err := s.store.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, sess := range active {
		now := s.now()
		end := sess.EndsAt()
		warnAt := end.Add(-s.warningOffset)

		pastEnd := !now.Before(end)
		if sess.State == model.StateRunning && sess.Duration > s.warningOffset && !now.Before(warnAt) && !pastEnd {
			// The warning should have fired while we were down; catch up
			// before re-arming the end timer.
			updated, err := s.store.Transition(ctx, sess.TicketID, model.StateWarningSent, now)
			if err != nil {
				log.Printf("scheduler: recovery warning for %s failed: %v", sess.TicketID, err)
			} else {
				sess = updated
				s.emit(sess, queue.EventSessionWarning, sess.Remaining(now))
			}
		}
		if pastEnd {
			// Missed the end while down: instant catch-up, not a skipped
			// event. The stale warning (if any was missed too) is skipped;
			// only the terminal event fires.
			ended, err := s.store.Transition(ctx, sess.TicketID, model.StateEnded, now)
			if err != nil {
				log.Printf("scheduler: recovery end for %s failed: %v", sess.TicketID, err)
				continue
			}
			s.emit(ended, queue.EventSessionEnded, 0)
			continue
		}
		s.arm(sess)
		log.Printf("scheduler: restored timers for %s (%s left)", sess.TicketID, sess.Remaining(now).Round(time.Second))
	}
	return nil
}

// Stop cancels every pending timer. Used on shutdown; the sessions
// themselves stay untouched in the store and are picked up again by
// Recover on the next boot.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.stop()
		delete(s.timers, id)
	}
}

// arm schedules the warning and end timers for a session relative to
// the scheduler's current time. The warning timer is only armed for
// Running sessions whose warning instant is still ahead; recovery may
// hand us a WarningSent session that only needs the end timer.
func (s *Scheduler) arm(sess model.Session) {
	now := s.now()
	end := sess.EndsAt()
	warnAt := end.Add(-s.warningOffset)
	id := sess.TicketID

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[id]; ok {
		old.stop()
	}
	t := &ticketTimers{}
	if sess.State == model.StateRunning && sess.Duration > s.warningOffset && warnAt.After(now) {
		t.warning = time.AfterFunc(warnAt.Sub(now), func() { s.fireWarning(id) })
	}
	t.end = time.AfterFunc(end.Sub(now), func() { s.fireEnd(id) })
	s.timers[id] = t
}

// fireWarning runs in the warning timer's goroutine. The transition is
// the gate: if the session already moved on (manual end, clock skew),
// it fails and the callback is a no-op.
func (s *Scheduler) fireWarning(ticketID string) {
	ctx := context.Background()
	sess, err := s.store.Transition(ctx, ticketID, model.StateWarningSent, s.now())
	if err != nil {
		if !errors.Is(err, store.ErrInvalidTransition) && !errors.Is(err, store.ErrNotFound) {
			log.Printf("scheduler: warning transition for %s failed: %v", ticketID, err)
		}
		return
	}
	s.emit(sess, queue.EventSessionWarning, s.warningOffset)
}

// fireEnd runs in the end timer's goroutine, and also covers the case
// where the session was manually ended a moment earlier: the
// transition fails and nothing is emitted twice.
func (s *Scheduler) fireEnd(ticketID string) {
	ctx := context.Background()
	sess, err := s.store.Transition(ctx, ticketID, model.StateEnded, s.now())

	s.mu.Lock()
	if t, ok := s.timers[ticketID]; ok {
		t.stop()
		delete(s.timers, ticketID)
	}
	s.mu.Unlock()

	if err != nil {
		if !errors.Is(err, store.ErrInvalidTransition) && !errors.Is(err, store.ErrNotFound) {
			log.Printf("scheduler: end transition for %s failed: %v", ticketID, err)
		}
		return
	}
	s.emit(sess, queue.EventSessionEnded, 0)
}

// emit requests a notification. Dispatch is best-effort and strictly
// after the state transition that earned it; failures are logged and
// otherwise ignored.
func (s *Scheduler) emit(sess model.Session, kind queue.EventKind, remaining time.Duration) {
	ev := queue.NotificationEvent{
		Kind:        kind,
		TicketID:    sess.TicketID,
		Name:        sess.Name,
		Phone:       sess.Phone,
		DurationMin: int(math.Round(sess.Duration.Minutes())),
		OccurredAt:  s.now().UTC().Format(time.RFC3339),
	}
	if kind == queue.EventSessionWarning {
		ev.RemainingMin = int(math.Ceil(remaining.Minutes()))
	}
	if err := s.sink.Notify(context.Background(), ev); err != nil {
		log.Printf("scheduler: notify %s for %s failed: %v", kind, sess.TicketID, err)
	}
}
