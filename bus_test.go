package vesselsync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_SubscribeEmit(t *testing.T) {
	bus := NewEventBus()

	var got []string
	bus.Subscribe("work_orders.created", func(eventType, payload string) error {
		got = append(got, eventType+":"+payload)
		return nil
	})

	invoked, err := bus.Emit("work_orders.created", `{"id":"wo-1"}`)

	require.NoError(t, err)
	assert.Equal(t, 1, invoked)
	assert.Equal(t, []string{`work_orders.created:{"id":"wo-1"}`}, got)
}

func TestEventBus_Emit_NoListeners(t *testing.T) {
	bus := NewEventBus()

	invoked, err := bus.Emit("nobody.cares", "{}")

	require.NoError(t, err)
	assert.Equal(t, 0, invoked)
}

func TestEventBus_WildcardSubscriber(t *testing.T) {
	bus := NewEventBus()

	all := 0
	specific := 0
	bus.Subscribe(BusEventAll, func(string, string) error { all++; return nil })
	bus.Subscribe("alerts.created", func(string, string) error { specific++; return nil })

	invoked, err := bus.Emit("alerts.created", "{}")
	require.NoError(t, err)
	assert.Equal(t, 2, invoked)

	invoked, err = bus.Emit("crew.deleted", "{}")
	require.NoError(t, err)
	assert.Equal(t, 1, invoked)

	assert.Equal(t, 2, all)
	assert.Equal(t, 1, specific)
}

func TestEventBus_Emit_FirstErrorReported(t *testing.T) {
	bus := NewEventBus()

	bus.Subscribe("alerts.created", func(string, string) error { return errors.New("boom") })
	bus.Subscribe("alerts.created", func(string, string) error { return nil })

	invoked, err := bus.Emit("alerts.created", "{}")

	assert.Error(t, err)
	assert.Equal(t, 2, invoked, "all handlers run even when one fails")
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()

	count := 0
	unsubscribe := bus.Subscribe("crew.updated", func(string, string) error { count++; return nil })
	require.Equal(t, 1, bus.ListenerCount("crew.updated"))

	unsubscribe()
	assert.Equal(t, 0, bus.ListenerCount("crew.updated"))

	// Idempotent.
	unsubscribe()

	invoked, err := bus.Emit("crew.updated", "{}")
	require.NoError(t, err)
	assert.Equal(t, 0, invoked)
	assert.Equal(t, 0, count)
}

func TestEventBus_UnsubscribeOneOfMany(t *testing.T) {
	bus := NewEventBus()

	a, b := 0, 0
	cancelA := bus.Subscribe("x", func(string, string) error { a++; return nil })
	bus.Subscribe("x", func(string, string) error { b++; return nil })

	cancelA()
	_, err := bus.Emit("x", "{}")

	require.NoError(t, err)
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
}
