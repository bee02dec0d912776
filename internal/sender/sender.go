// Package sender defines the channel sender capability and its failure
// taxonomy.
//
// A Sender contacts one external provider and reports success, a retryable
// failure or a permanent failure. It knows nothing about retries or
// persistence; the dispatcher picks a Sender from a Registry by channel.
package sender

import (
	"context"
	"fmt"
	"sync"

	"github.com/aliskhannn/clinic-notifier/internal/model"
)

// Sender delivers content to a recipient over one channel.
//
// Implementations must honor ctx cancellation and return errors built with
// Retryable or Permanent where the provider response allows it.
type Sender interface {
	Send(ctx context.Context, recipient, content string) error
}

// Func adapts an ordinary function to the Sender interface.
type Func func(ctx context.Context, recipient, content string) error

func (f Func) Send(ctx context.Context, recipient, content string) error {
	return f(ctx, recipient, content)
}

// Registry selects a Sender by channel.
type Registry struct {
	mu      sync.RWMutex
	senders map[model.Channel]Sender
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[model.Channel]Sender)}
}

// Register binds s to channel, replacing any previous sender.
func (r *Registry) Register(channel model.Channel, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[channel] = s
}

// Lookup returns the sender for channel. A channel with no sender is
// reported as a permanent "channel disabled" failure.
func (r *Registry) Lookup(channel model.Channel) (Sender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.senders[channel]
	if !ok {
		return nil, Permanent("channel disabled", fmt.Errorf("no sender for channel %s", channel))
	}

	return s, nil
}

// Channels returns the channels that have a sender.
func (r *Registry) Channels() []model.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Channel, 0, len(r.senders))
	for _, c := range model.Channels {
		if _, ok := r.senders[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
