package admission

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cernbox/docvault/pkg/model"
)

func newTestQueue(t *testing.T, limits Limits) (*Queue, *int) {
	t.Helper()
	created := 0
	q := New(limits, func(args model.InitiateArgs) (*model.UploadSession, error) {
		created++
		return &model.UploadSession{ID: "sess-" + args.FileName, TotalSize: args.TotalSize}, nil
	})
	return q, &created
}

func TestInitiateWithHeadroomRunsImmediately(t *testing.T) {
	q, created := newTestQueue(t, Limits{MaxActiveSessions: 2, MaxTotalUploadBytes: 1000})

	sess, ticket, err := q.InitiateOrEnqueue(model.InitiateArgs{FileName: "a", TotalSize: 100}, "user-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Nil(t, ticket)
	require.Equal(t, 1, *created)
}

func TestInitiateWithoutHeadroomEnqueues(t *testing.T) {
	q, created := newTestQueue(t, Limits{MaxActiveSessions: 1, MaxTotalUploadBytes: 1000})

	sess1, ticket1, err := q.InitiateOrEnqueue(model.InitiateArgs{FileName: "a", TotalSize: 100}, "user-1")
	require.NoError(t, err)
	require.NotNil(t, sess1)
	require.Nil(t, ticket1)

	sess2, ticket2, err := q.InitiateOrEnqueue(model.InitiateArgs{FileName: "b", TotalSize: 100}, "user-2")
	require.NoError(t, err)
	require.Nil(t, sess2)
	require.NotNil(t, ticket2)
	require.Equal(t, model.TicketWaiting, ticket2.Status)
	require.Equal(t, 1, ticket2.Position)
	require.Equal(t, 1, *created)
}

func TestReleasePromotesWaitingTicket(t *testing.T) {
	q, created := newTestQueue(t, Limits{MaxActiveSessions: 1, MaxTotalUploadBytes: 1000})

	_, _, err := q.InitiateOrEnqueue(model.InitiateArgs{FileName: "a", TotalSize: 100}, "user-1")
	require.NoError(t, err)

	_, ticket2, err := q.InitiateOrEnqueue(model.InitiateArgs{FileName: "b", TotalSize: 100}, "user-2")
	require.NoError(t, err)
	require.NotNil(t, ticket2)

	q.Release(100)
	require.Equal(t, 2, *created)

	status, err := q.Status(ticket2.Ticket)
	require.NoError(t, err)
	require.Equal(t, model.TicketReady, status.Status)
	require.NotNil(t, status.SessionID)
}

func TestPositionNeverIncreasesBetweenPolls(t *testing.T) {
	q, _ := newTestQueue(t, Limits{MaxActiveSessions: 1, MaxTotalUploadBytes: 1000})

	_, _, err := q.InitiateOrEnqueue(model.InitiateArgs{FileName: "a", TotalSize: 100}, "user-1")
	require.NoError(t, err)
	_, t2, err := q.InitiateOrEnqueue(model.InitiateArgs{FileName: "b", TotalSize: 100}, "user-2")
	require.NoError(t, err)
	_, t3, err := q.InitiateOrEnqueue(model.InitiateArgs{FileName: "c", TotalSize: 100}, "user-3")
	require.NoError(t, err)
	require.Equal(t, 1, t2.Position)
	require.Equal(t, 2, t3.Position)

	q.Release(100)

	s3, err := q.Status(t3.Ticket)
	require.NoError(t, err)
	require.Equal(t, 1, s3.Position)
}

func TestCancelWaitingTicketIsIdempotent(t *testing.T) {
	q, _ := newTestQueue(t, Limits{MaxActiveSessions: 1, MaxTotalUploadBytes: 1000})

	_, _, err := q.InitiateOrEnqueue(model.InitiateArgs{FileName: "a", TotalSize: 100}, "user-1")
	require.NoError(t, err)
	_, ticket2, err := q.InitiateOrEnqueue(model.InitiateArgs{FileName: "b", TotalSize: 100}, "user-2")
	require.NoError(t, err)

	require.NoError(t, q.Cancel(ticket2.Ticket))
	require.NoError(t, q.Cancel(ticket2.Ticket))

	_, err = q.Status(ticket2.Ticket)
	require.Error(t, err)
}
