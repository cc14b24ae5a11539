// Package natsjs builds the NATS JetStream-backed events.Stream used by
// pkg/jobqueue in production, grounded on the teacher's
// pkg/events/stream.Nats: the same exponential-backoff connect retry via
// github.com/cenkalti/backoff, wrapping
// github.com/go-micro/plugins/v4/events/natsjs.
package natsjs

import (
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-micro/plugins/v4/events/natsjs"
	"go-micro.dev/v4/events"

	"github.com/cernbox/docvault/pkg/log"
)

var logger = log.New("jobqueue.natsjs")

// Connect returns a NATS JetStream streaming client, retrying the initial
// connection with exponential backoff the way the teacher's stream.Nats
// does, since the broker may still be starting up when docvaultd does.
func Connect(address, clusterID string) (events.Stream, error) {
	opts := []natsjs.Option{
		natsjs.Address(address),
		natsjs.ClusterID(clusterID),
	}

	b := backoff.NewExponentialBackOff()
	var stream events.Stream
	op := func() error {
		s, err := natsjs.NewStream(opts...)
		if err != nil {
			next := b.NextBackOff()
			if next > time.Second {
				logger.Error().Err(err).Msgf("can't connect to nats (jetstream) server, retrying in %s", next)
			}
			return err
		}
		stream = s
		return nil
	}

	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return stream, nil
}
