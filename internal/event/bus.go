package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Type names a domain event
type Type string

const (
	TypeAccountCreated Type = "account_created"
)

// Event is something that happened which other subsystems may react to
type Event interface {
	Type() Type
}

// AccountCreated is published after a new account has been stored
type AccountCreated struct {
	UserID   string
	Username string
}

func (AccountCreated) Type() Type { return TypeAccountCreated }

// Handler reacts to one event
type Handler func(ctx context.Context, e Event) error

// Bus is a synchronous publish/subscribe dispatcher with type filtering.
// Publish runs every handler for the event's type in subscription order and
// returns their joined errors.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]Handler),
	}
}

// Subscribe registers h for events of type t
func (b *Bus) Subscribe(t Type, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.Type()]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", e.Type(), err))
		}
	}
	return errors.Join(errs...)
}
