// Package admission implements the upload admission queue (C8): a
// process-wide, mutex-guarded FIFO gating how many multipart upload
// sessions and how many total in-flight bytes the service allows at once,
// in the manner of the teacher's in-memory registries (e.g.
// pkg/storage/registry/static) that keep process-wide singleton state
// behind a single lock rather than a dedicated actor or external queue.
package admission

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/log"
	"github.com/cernbox/docvault/pkg/metrics"
	"github.com/cernbox/docvault/pkg/model"
)

var logger = log.New("admission")

// ReadyTTL is how long a promoted ticket stays READY before it expires
// unclaimed and the slot is handed to the next waiter.
const ReadyTTL = 30 * time.Second

// Limits are the two admission caps from spec.md §4.8.
type Limits struct {
	MaxActiveSessions  int
	MaxTotalUploadBytes int64
}

// Admitter is the admission-queue command surface: InitiateOrEnqueue runs on
// every upload-initiate request, Release runs on every terminal session
// transition.
type Admitter interface {
	InitiateOrEnqueue(args model.InitiateArgs, userID string) (*model.UploadSession, *model.QueueTicket, error)
	Release(sizeBytes int64)
	Status(ticket string) (*model.QueueTicket, error)
	Cancel(ticket string) error
}

// Queue is the process-wide FIFO admitter. Zero value is not usable; build
// one with New.
type Queue struct {
	mu sync.Mutex

	limits Limits

	activeSessions   int
	totalUploadBytes int64

	waiting  *list.List // of *ticketEntry, FIFO order
	ready    *list.List // of *ticketEntry, promoted but unclaimed
	byTicket map[string]*list.Element

	start func(model.InitiateArgs) (*model.UploadSession, error)
}

type ticketEntry struct {
	ticket        model.QueueTicket
	readyDeadline time.Time
}

// New returns an admission queue enforcing limits. start is invoked (under
// the queue's lock) whenever a slot becomes available for a waiting
// ticket's InitiateArgs; it must behave like the command service's own
// session-creation call, since promote-next re-runs the exact same
// admission decision a fresh Initiate would have made.
func New(limits Limits, start func(model.InitiateArgs) (*model.UploadSession, error)) *Queue {
	return &Queue{
		limits:   limits,
		waiting:  list.New(),
		ready:    list.New(),
		byTicket: map[string]*list.Element{},
		start:    start,
	}
}

// reportGauges refreshes the admission-queue gauges. Caller must hold q.mu.
func (q *Queue) reportGauges() {
	metrics.AdmissionQueueDepth.Set(float64(q.waiting.Len()))
	metrics.AdmissionActiveSessions.Set(float64(q.activeSessions))
	metrics.AdmissionActiveBytes.Set(float64(q.totalUploadBytes))
}

func (q *Queue) hasHeadroom(size int64) bool {
	if q.limits.MaxActiveSessions > 0 && q.activeSessions >= q.limits.MaxActiveSessions {
		return false
	}
	if q.limits.MaxTotalUploadBytes > 0 && q.totalUploadBytes+size > q.limits.MaxTotalUploadBytes {
		return false
	}
	return true
}

// InitiateOrEnqueue implements the initiate-or-enqueue semantics of
// spec.md §4.8: with headroom, create the session immediately; otherwise
// append a WAITING ticket and report its FIFO position.
func (q *Queue) InitiateOrEnqueue(args model.InitiateArgs, userID string) (*model.UploadSession, *model.QueueTicket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer q.reportGauges()

	if q.waiting.Len() == 0 && q.hasHeadroom(args.TotalSize) {
		sess, err := q.start(args)
		if err != nil {
			return nil, nil, err
		}
		q.activeSessions++
		q.totalUploadBytes += args.TotalSize
		return sess, nil, nil
	}

	t := model.QueueTicket{
		Ticket:       uuid.NewString(),
		Status:       model.TicketWaiting,
		Position:     q.waiting.Len() + 1,
		InitiateArgs: args,
		UserID:       userID,
		CreatedAt:    time.Now().UTC(),
	}
	el := q.waiting.PushBack(&ticketEntry{ticket: t})
	q.byTicket[t.Ticket] = el
	return nil, &t, nil
}

// Release decrements the occupancy counters for a session that just entered
// a terminal state (COMPLETED/ABORTED/EXPIRED) and promotes the next waiting
// ticket, if any fit.
func (q *Queue) Release(sizeBytes int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer q.reportGauges()

	if q.activeSessions > 0 {
		q.activeSessions--
	}
	q.totalUploadBytes -= sizeBytes
	if q.totalUploadBytes < 0 {
		q.totalUploadBytes = 0
	}
	q.promoteNext()
}

// promoteNext pops the head ticket and attempts admission for its args; on
// success the ticket becomes READY with a claim deadline, and if session
// creation fails it is requeued at the tail so one failing ticket doesn't
// permanently block the queue (each waiting ticket is tried at most once per
// call). Promotion is strictly FIFO: when the head ticket does not fit the
// remaining headroom, promotion stops and the ticket stays at the head.
func (q *Queue) promoteNext() {
	for attempts := q.waiting.Len(); attempts > 0; attempts-- {
		front := q.waiting.Front()
		if front == nil {
			return
		}
		entry := front.Value.(*ticketEntry)
		if !q.hasHeadroom(entry.ticket.InitiateArgs.TotalSize) {
			return
		}

		sess, err := q.start(entry.ticket.InitiateArgs)
		q.waiting.Remove(front)
		delete(q.byTicket, entry.ticket.Ticket)
		q.renumber()

		if err != nil {
			logger.Error().Err(err).Str("ticket", entry.ticket.Ticket).Msg("admission: promote-next admission failed, requeueing")
			entry.ticket.Status = model.TicketWaiting
			entry.ticket.Position = q.waiting.Len() + 1
			el := q.waiting.PushBack(entry)
			q.byTicket[entry.ticket.Ticket] = el
			continue
		}

		q.activeSessions++
		q.totalUploadBytes += entry.ticket.InitiateArgs.TotalSize
		deadline := time.Now().UTC().Add(ReadyTTL)
		entry.ticket.Status = model.TicketReady
		entry.ticket.ReadyDeadline = &deadline
		entry.ticket.SessionID = &sess.ID
		entry.readyDeadline = deadline
		q.byTicket[entry.ticket.Ticket] = q.readyList().PushBack(entry)
		return
	}
}

// readyList keeps promoted-but-unclaimed tickets visible to Status/sweep
// without mixing them into the FIFO waiting order.
func (q *Queue) readyList() *list.List {
	if q.ready == nil {
		q.ready = list.New()
	}
	return q.ready
}

// renumber keeps position monotonic for the remaining WAITING tickets
// after one is removed from the front, per spec.md §4.8.
func (q *Queue) renumber() {
	i := 1
	for el := q.waiting.Front(); el != nil; el = el.Next() {
		el.Value.(*ticketEntry).ticket.Position = i
		i++
	}
}

// Status returns the current view of a ticket, expiring it lazily if it is
// READY past its claim deadline.
func (q *Queue) Status(ticket string) (*model.QueueTicket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer q.reportGauges()

	el, ok := q.byTicket[ticket]
	if !ok {
		return nil, errkind.NotFound("queue ticket not found: " + ticket)
	}
	entry := el.Value.(*ticketEntry)
	if entry.ticket.Status == model.TicketReady && time.Now().UTC().After(entry.readyDeadline) {
		q.expireReady(ticket)
		t := entry.ticket
		t.Status = model.TicketExpired
		return &t, nil
	}
	t := entry.ticket
	return &t, nil
}

// Cancel drops a ticket from the queue: a WAITING ticket leaves the FIFO, a
// READY one gives its reserved slot back. A cancelled ticket is forgotten,
// so a later Status reports it not found. Idempotent: cancelling an unknown
// or already-dropped ticket is a no-op, not an error.
func (q *Queue) Cancel(ticket string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer q.reportGauges()

	el, ok := q.byTicket[ticket]
	if !ok {
		return nil
	}
	entry := el.Value.(*ticketEntry)
	switch entry.ticket.Status {
	case model.TicketExpired, model.TicketCancelled:
		return nil
	case model.TicketWaiting:
		q.waiting.Remove(el)
		delete(q.byTicket, ticket)
		q.renumber()
		return nil
	case model.TicketReady:
		q.expireReady(ticket)
		return nil
	default:
		return nil
	}
}

// Sweep expires any READY ticket whose claim deadline has passed and
// promotes its replacement, for callers that run this on a ticker instead
// of relying purely on lazy expiration at Status/Cancel time.
func (q *Queue) Sweep() {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer q.reportGauges()

	now := time.Now().UTC()
	var expired []string
	for el := q.ready.Front(); el != nil; el = el.Next() {
		if now.After(el.Value.(*ticketEntry).readyDeadline) {
			expired = append(expired, el.Value.(*ticketEntry).ticket.Ticket)
		}
	}
	for _, ticket := range expired {
		q.expireReady(ticket)
	}
}

// expireReady drops a READY ticket and releases the session slot it was
// holding, so an uploader that never claims a promoted ticket doesn't
// permanently wedge the caps it reserved.
func (q *Queue) expireReady(ticket string) {
	if q.ready == nil {
		return
	}
	for el := q.ready.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*ticketEntry)
		if entry.ticket.Ticket == ticket {
			q.ready.Remove(el)
			delete(q.byTicket, ticket)
			if q.activeSessions > 0 {
				q.activeSessions--
			}
			q.totalUploadBytes -= entry.ticket.InitiateArgs.TotalSize
			if q.totalUploadBytes < 0 {
				q.totalUploadBytes = 0
			}
			q.promoteNext()
			return
		}
	}
	delete(q.byTicket, ticket)
}
