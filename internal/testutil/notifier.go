package testutil

import (
	"context"
	"sync"
)

// Published is one call to RecordingNotifier.Publish
type Published struct {
	Event   string
	Room    string
	Payload any
}

// RecordingNotifier keeps every publish for assertions. Err, when set, is
// returned from Publish after recording.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []Published
	Err    error
}

func (n *RecordingNotifier) Publish(_ context.Context, event, room string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, Published{Event: event, Room: room, Payload: payload})
	return n.Err
}

func (n *RecordingNotifier) Events() []Published {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Published(nil), n.events...)
}
