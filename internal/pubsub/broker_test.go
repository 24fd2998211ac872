package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		require.Fail(t, "timeout waiting for event")
		return Event[T]{}
	}
}

func requireClosed[T any](t *testing.T, ch <-chan Event[T]) {
	t.Helper()
	select {
	case _, ok := <-ch:
		require.False(t, ok, "channel should be closed")
	case <-time.After(time.Second):
		require.Fail(t, "channel not closed")
	}
}

func TestBroker_FansOutRuleSetEvents(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx := context.Background()
	subs := []<-chan Event[string]{broker.Subscribe(ctx), broker.Subscribe(ctx)}
	require.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(RuleSetChangedEvent, "php")

	for _, ch := range subs {
		ev := receive(t, ch)
		require.Equal(t, RuleSetChangedEvent, ev.Type)
		require.Equal(t, "php", ev.Payload)
		require.False(t, ev.Timestamp.IsZero())
	}
}

func TestBroker_SubscribeTypes(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx := context.Background()
	removals := broker.SubscribeTypes(ctx, RuleSetRemovedEvent)
	all := broker.Subscribe(ctx)

	broker.Publish(LogEntryEvent, "noise")
	broker.Publish(RuleSetRemovedEvent, "sql")

	ev := receive(t, removals)
	require.Equal(t, "sql", ev.Payload)
	require.Equal(t, LogEntryEvent, receive(t, all).Type)
	require.Equal(t, RuleSetRemovedEvent, receive(t, all).Type)

	select {
	case ev := <-removals:
		require.Fail(t, "unexpected event", "%v", ev)
	default:
	}
}

func TestBroker_ContextCancellation(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	require.Equal(t, 1, broker.SubscriberCount())

	cancel()
	require.Eventually(t, func() bool { return broker.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	requireClosed(t, ch)
}

func TestBroker_DropsWhenSubscriberIsSlow(t *testing.T) {
	broker := NewBrokerWithBuffer[int](1)
	defer broker.Close()

	ch := broker.Subscribe(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 3; i++ {
			broker.Publish(RuleSetsReloadedEvent, i)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Publish blocked")
	}

	require.Equal(t, 1, receive(t, ch).Payload)
	require.Equal(t, uint64(2), broker.Dropped())
}

func TestBroker_Close(t *testing.T) {
	broker := NewBroker[string]()

	ctx := context.Background()
	ch1 := broker.Subscribe(ctx)
	ch2 := broker.SubscribeTypes(ctx, RuleSetChangedEvent)

	broker.Close()
	broker.Close()

	requireClosed(t, ch1)
	requireClosed(t, ch2)
	require.Equal(t, 0, broker.SubscriberCount())

	requireClosed(t, broker.Subscribe(ctx))
	require.NotPanics(t, func() { broker.Publish(LogEntryEvent, "late") })
}
