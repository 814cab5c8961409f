package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type otherEvent struct{}

func (otherEvent) Type() Type { return "other" }

func TestBusDeliversByType(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.Subscribe(TypeAccountCreated, func(ctx context.Context, e Event) error {
		got = append(got, "first:"+e.(AccountCreated).Username)
		return nil
	})
	bus.Subscribe(TypeAccountCreated, func(ctx context.Context, e Event) error {
		got = append(got, "second:"+e.(AccountCreated).UserID)
		return nil
	})
	bus.Subscribe(TypeAccountCreated, nil)

	require.NoError(t, bus.Publish(context.Background(), AccountCreated{UserID: "u1", Username: "alice"}))
	require.NoError(t, bus.Publish(context.Background(), otherEvent{}))

	assert.Equal(t, []string{"first:alice", "second:u1"}, got)
}

func TestBusJoinsHandlerErrors(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	calls := 0

	bus.Subscribe(TypeAccountCreated, func(ctx context.Context, e Event) error {
		calls++
		return boom
	})
	bus.Subscribe(TypeAccountCreated, func(ctx context.Context, e Event) error {
		calls++
		return nil
	})

	err := bus.Publish(context.Background(), AccountCreated{UserID: "u1"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}
