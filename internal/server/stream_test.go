package server

import (
	"testing"
	"time"
)

func TestEventBroadcaster_SubscribeAndBroadcast(t *testing.T) {
	eb := NewEventBroadcaster()

	ch := eb.Subscribe("job-1")
	other := eb.Subscribe("job-2")

	eb.Broadcast(ProgressEvent{JobID: "job-1", State: StateRunning, Evaluations: 3})

	select {
	case ev := <-ch:
		if ev.Evaluations != 3 {
			t.Errorf("Unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Subscriber did not receive the event")
	}

	select {
	case ev := <-other:
		t.Errorf("Other job's subscriber received %+v", ev)
	default:
	}

	eb.Unsubscribe("job-1", ch)
	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after unsubscribe")
	}
	eb.Unsubscribe("job-2", other)
}

func TestEventBroadcaster_ReplaysLastEvent(t *testing.T) {
	eb := NewEventBroadcaster()
	eb.Broadcast(ProgressEvent{JobID: "job-1", State: StateRunning, Evaluations: 7})

	ch := eb.Subscribe("job-1")
	defer eb.Unsubscribe("job-1", ch)

	select {
	case ev := <-ch:
		if ev.Evaluations != 7 {
			t.Errorf("Expected replayed event, got %+v", ev)
		}
	default:
		t.Fatal("Late subscriber should receive the last event")
	}
}

func TestEventBroadcaster_FullChannelDoesNotBlock(t *testing.T) {
	eb := NewEventBroadcaster()
	ch := eb.Subscribe("job-1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			eb.Broadcast(ProgressEvent{JobID: "job-1", Evaluations: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a full channel")
	}
	eb.CleanupJob("job-1")
	// after cleanup the channel is closed; a late Unsubscribe must not panic
	eb.Unsubscribe("job-1", ch)
}
