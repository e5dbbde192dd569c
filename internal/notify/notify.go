// Package notify delivers change events from model objects to whoever
// watches them.
package notify

type subscription[E any] struct {
	fn     func(E)
	active bool
}

// Notifier keeps a list of subscribers for change events of type E. The zero
// value is ready to use.
type Notifier[E any] struct {
	subs []*subscription[E]
}

// Subscribe adds fn to the subscribers. The returned function removes it
// again and may be called any number of times, including from inside a
// delivery.
func (n *Notifier[E]) Subscribe(fn func(E)) (unsubscribe func()) {
	s := &subscription[E]{fn: fn, active: true}
	n.subs = append(n.subs, s)
	return func() {
		if !s.active {
			return
		}
		s.active = false
		for i, other := range n.subs {
			if other == s {
				n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
				break
			}
		}
	}
}

// Notify synchronously delivers ev to the subscribers in subscription order.
// Subscribers added during delivery do not receive ev; subscribers removed
// during delivery do not receive it either if they were not reached yet.
func (n *Notifier[E]) Notify(ev E) {
	if len(n.subs) == 0 {
		return
	}
	subs := append([]*subscription[E](nil), n.subs...)
	for _, s := range subs {
		if s.active {
			s.fn(ev)
		}
	}
}

// Len returns the number of subscribers.
func (n *Notifier[E]) Len() int {
	return len(n.subs)
}
