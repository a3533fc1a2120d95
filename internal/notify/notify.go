// Package notify propagates "collection changed" signals between the views
// observing the same collection. Delivery is synchronous: Notify returns
// after every handler subscribed to the topic has run.
package notify

import (
	"fmt"
	"sync"
	"time"
)

// Topic scopes which subscribers react to a change.
type Topic string

const (
	TopicCharacters     Topic = "characters"
	TopicStoryboards    Topic = "storyboards"
	TopicSearchHistory  Topic = "search_history"
	TopicRecentSearches Topic = "recent_searches"
)

// Topics lists every known topic.
func Topics() []Topic {
	return []Topic{TopicCharacters, TopicStoryboards, TopicSearchHistory, TopicRecentSearches}
}

// ParseTopic validates a topic name received from outside the process.
func ParseTopic(s string) (Topic, error) {
	for _, t := range Topics() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown topic %q", s)
}

// Event describes one change notification.
// Origin is empty for changes made in this process.
type Event struct {
	Topic  Topic     `json:"topic"`
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

// Handler reacts to a change notification.
type Handler func(Event)

type subscription struct {
	topic   Topic // empty for subscribers of every topic
	handler Handler
}

// Notifier is a topic-scoped publish/subscribe hub. The zero value is not usable;
// construct with New.
type Notifier struct {
	mu   sync.RWMutex
	subs []*subscription
}

// New creates a Notifier with no subscribers.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers handler for topic. The returned function releases the
// subscription; calling it more than once is harmless.
func (n *Notifier) Subscribe(topic Topic, handler Handler) (unsubscribe func()) {
	return n.add(&subscription{topic: topic, handler: handler})
}

// SubscribeAll registers handler for every topic.
func (n *Notifier) SubscribeAll(handler Handler) (unsubscribe func()) {
	return n.add(&subscription{handler: handler})
}

func (n *Notifier) add(s *subscription) func() {
	n.mu.Lock()
	n.subs = append(n.subs, s)
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { n.remove(s) })
	}
}

func (n *Notifier) remove(s *subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, cur := range n.subs {
		if cur == s {
			n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
			return
		}
	}
}

// Notify signals a local change on topic.
func (n *Notifier) Notify(topic Topic) {
	n.Deliver(Event{Topic: topic, At: time.Now().UTC()})
}

// Deliver runs every handler matching ev.Topic, in subscription order.
// Handlers may subscribe or unsubscribe while being delivered to; such changes
// take effect from the next delivery.
func (n *Notifier) Deliver(ev Event) {
	n.mu.RLock()
	matched := make([]Handler, 0, len(n.subs))
	for _, s := range n.subs {
		if s.topic == "" || s.topic == ev.Topic {
			matched = append(matched, s.handler)
		}
	}
	n.mu.RUnlock()

	for _, h := range matched {
		h(ev)
	}
}

// Subscribers returns how many handlers would receive a notification on topic.
func (n *Notifier) Subscribers(topic Topic) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	count := 0
	for _, s := range n.subs {
		if s.topic == "" || s.topic == topic {
			count++
		}
	}
	return count
}
