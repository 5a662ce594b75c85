package mqtt

import (
	"io"
	"sync"
)

// Loopback is an in-process PubSub delivering synchronously, for tests
// and single process setups.
type Loopback struct {
	lock sync.RWMutex
	subs map[*loopbackSub]struct{}
}

type loopbackSub struct {
	lb      *Loopback
	topic   string
	handler Handler
}

// NewLoopback creates a Loopback.
func NewLoopback() *Loopback {
	return &Loopback{subs: make(map[*loopbackSub]struct{})}
}

// Pub implements PubSub.
func (l *Loopback) Pub(topic string, payload []byte) error {
	var handlers []Handler
	l.lock.RLock()
	for sub := range l.subs {
		if MatchTopic(topic, sub.topic) {
			handlers = append(handlers, sub.handler)
		}
	}
	l.lock.RUnlock()
	for _, h := range handlers {
		h(topic, append([]byte(nil), payload...))
	}
	return nil
}

// Sub implements PubSub.
func (l *Loopback) Sub(topic string, handler Handler) (io.Closer, error) {
	sub := &loopbackSub{lb: l, topic: topic, handler: handler}
	l.lock.Lock()
	l.subs[sub] = struct{}{}
	l.lock.Unlock()
	return sub, nil
}

// Subscribers returns the number of active subscriptions.
func (l *Loopback) Subscribers() int {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return len(l.subs)
}

func (s *loopbackSub) Close() error {
	s.lb.lock.Lock()
	delete(s.lb.subs, s)
	s.lb.lock.Unlock()
	return nil
}
