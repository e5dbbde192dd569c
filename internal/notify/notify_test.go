package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifyOrder(t *testing.T) {
	var n Notifier[int]
	var got []string
	n.Subscribe(func(v int) { got = append(got, "a") })
	unsub := n.Subscribe(func(v int) { got = append(got, "b") })
	n.Notify(1)
	assert.Equal(t, []string{"a", "b"}, got)

	unsub()
	unsub()
	n.Notify(2)
	assert.Equal(t, []string{"a", "b", "a"}, got)
	assert.Equal(t, 1, n.Len())
}

func TestUnsubscribeDuringDelivery(t *testing.T) {
	var n Notifier[string]
	var got []string
	var unsubB func()
	n.Subscribe(func(v string) {
		got = append(got, "a:"+v)
		unsubB()
		n.Subscribe(func(v string) { got = append(got, "c:"+v) })
	})
	unsubB = n.Subscribe(func(v string) { got = append(got, "b:"+v) })

	n.Notify("x")
	assert.Equal(t, []string{"a:x"}, got)

	n.Notify("y")
	assert.Equal(t, []string{"a:x", "a:y", "c:y"}, got)
}
