package grace_test

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cernbox/docvault/pkg/grace"
)

type fakeComponent struct {
	name     string
	shutdown func(ctx context.Context) error
	called   chan struct{}
}

func newFakeComponent(name string, shutdown func(ctx context.Context) error) *fakeComponent {
	return &fakeComponent{name: name, shutdown: shutdown, called: make(chan struct{}, 1)}
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Shutdown(ctx context.Context) error {
	f.called <- struct{}{}
	return f.shutdown(ctx)
}

func TestWaitDrainsRegisteredComponents(t *testing.T) {
	w := grace.NewWatcher(grace.WithDeadline(time.Second))
	c1 := newFakeComponent("http", func(ctx context.Context) error { return nil })
	c2 := newFakeComponent("dispatcher", func(ctx context.Context) error { return nil })
	w.Register(c1)
	w.Register(c2)

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after SIGTERM")
	}

	select {
	case <-c1.called:
	default:
		t.Fatal("component c1 was not shut down")
	}
	select {
	case <-c2.called:
	default:
		t.Fatal("component c2 was not shut down")
	}
}

func TestWaitHitsDeadline(t *testing.T) {
	w := grace.NewWatcher(grace.WithDeadline(50 * time.Millisecond))
	slow := newFakeComponent("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	w.Register(slow)

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after deadline")
	}
}
