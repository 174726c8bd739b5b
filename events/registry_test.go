package events

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRegistrationOrder(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	var got []string
	r.Register(ChatMessage, func(any) { got = append(got, "a") })
	r.Register(ChatMessage, func(any) { got = append(got, "b") })
	r.Register(ChatMessage, func(any) { got = append(got, "c") })
	r.Register(TaskUpdate, func(any) { got = append(got, "other") })

	require.NoError(t, r.Dispatch(ChatMessage, nil))
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestDispatchPassesPayload(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	var got any
	r.Register(Notification, func(p any) { got = p })

	require.NoError(t, r.Dispatch(Notification, "hello"))
	assert.Equal(t, "hello", got)
}

func TestDispatchWithoutListeners(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	assert.NoError(t, r.Dispatch(ProactiveUpdate, 1))
}

func TestUnsubscribeRemovesOnlyThatListener(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	var a, b int
	subA := r.Register(ChatMessage, func(any) { a++ })
	r.Register(ChatMessage, func(any) { b++ })

	require.NoError(t, r.Dispatch(ChatMessage, nil))
	subA.Unsubscribe()
	require.NoError(t, r.Dispatch(ChatMessage, nil))

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, r.Len(ChatMessage))
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	var calls int
	sub := r.Register(ChatMessage, func(any) {})
	r.Register(ChatMessage, func(any) { calls++ })

	sub.Unsubscribe()
	sub.Unsubscribe()

	require.NoError(t, r.Dispatch(ChatMessage, nil))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, r.Len(ChatMessage))
}

func TestSameFunctionRegisteredTwice(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	var calls int
	fn := func(any) { calls++ }
	first := r.Register(ChatMessage, fn)
	r.Register(ChatMessage, fn)

	first.Unsubscribe()
	require.NoError(t, r.Dispatch(ChatMessage, nil))
	assert.Equal(t, 1, calls)
}

func TestUnsubscribeDuringDispatchUsesSnapshot(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	var order []string
	var subB *Subscription
	r.Register(ChatMessage, func(any) {
		order = append(order, "a")
		subB.Unsubscribe()
	})
	subB = r.Register(ChatMessage, func(any) { order = append(order, "b") })

	require.NoError(t, r.Dispatch(ChatMessage, nil))
	assert.Equal(t, []string{"a", "b"}, order, "current pass keeps its snapshot")

	order = nil
	require.NoError(t, r.Dispatch(ChatMessage, nil))
	assert.Equal(t, []string{"a"}, order, "removal applies to the next pass")
}

func TestRegisterDuringDispatchAppliesNextPass(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	var late int
	added := false
	r.Register(ChatMessage, func(any) {
		if !added {
			added = true
			r.Register(ChatMessage, func(any) { late++ })
		}
	})

	require.NoError(t, r.Dispatch(ChatMessage, nil))
	assert.Equal(t, 0, late)
	require.NoError(t, r.Dispatch(ChatMessage, nil))
	assert.Equal(t, 1, late)
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	var after int
	r.Register(TaskUpdate, func(any) { panic("boom") })
	r.Register(TaskUpdate, func(any) { after++ })

	err := r.Dispatch(TaskUpdate, nil)
	require.Error(t, err)
	assert.Equal(t, 1, after)

	var pe *ListenerPanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, TaskUpdate, pe.Category)
	assert.Equal(t, "boom", pe.Value)
}

func TestCompactionKeepsOrder(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	var subs []*Subscription
	var got []int
	for i := 0; i < 10; i++ {
		i := i
		subs = append(subs, r.Register(ChatMessage, func(any) { got = append(got, i) }))
	}
	for i := 0; i < 10; i += 2 {
		subs[i].Unsubscribe()
	}
	subs[1].Unsubscribe()

	require.NoError(t, r.Dispatch(ChatMessage, nil))
	assert.Equal(t, []int{3, 5, 7, 9}, got)
	assert.Equal(t, 4, r.Len(ChatMessage))
}

func TestGroupUnsubscribeAll(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	var g Group
	var calls int
	g.Add(
		r.Register(ChatMessage, func(any) { calls++ }),
		r.Register(Connection, func(any) { calls++ }),
	)
	assert.Equal(t, 2, g.Len())

	g.UnsubscribeAll()
	g.UnsubscribeAll()

	require.NoError(t, r.Dispatch(ChatMessage, nil))
	require.NoError(t, r.Dispatch(Connection, true))
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 0, r.Len(ChatMessage))
}
