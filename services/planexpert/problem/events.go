// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package problem

import (
	"sync"
	"time"
)

// EventType names a kind of problem update.
type EventType string

const (
	EventInstanceAdded    EventType = "instance_added"
	EventInstanceRemoved  EventType = "instance_removed"
	EventPredicateAdded   EventType = "predicate_added"
	EventPredicateRemoved EventType = "predicate_removed"
	EventFunctionSet      EventType = "function_set"
	EventGoalSet          EventType = "goal_set"
	EventGoalCleared      EventType = "goal_cleared"
	EventCleared          EventType = "cleared"
)

// Event reports one committed change to the problem.
type Event struct {
	// Seq increases by one per published event.
	Seq uint64 `json:"seq"`

	Type EventType `json:"type"`

	// Subject is the rendered instance, predicate, function or goal the
	// change applies to. Empty for EventGoalCleared and EventCleared.
	Subject string `json:"subject,omitempty"`

	Time time.Time `json:"time"`
}

// Notifier fans problem updates out to subscribers.
//
// Description:
//
//	Publish never blocks: a subscriber whose buffer is full misses the
//	event, which is counted in planexpert_problem_events_dropped_total.
//	Subscribers detect gaps through Seq.
//
// Thread Safety: Safe for concurrent use.
type Notifier struct {
	mu   sync.Mutex
	seq  uint64
	next int
	subs map[int]chan Event
}

// NewNotifier returns a notifier with no subscribers.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber with the given buffer size. The
// returned cancel func unregisters it and closes the channel; it may be
// called more than once.
func (n *Notifier) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, max(buffer, 1))
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = ch
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Publish delivers an event to every subscriber.
func (n *Notifier) Publish(t EventType, subject string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	ev := Event{Seq: n.seq, Type: t, Subject: subject, Time: time.Now().UTC()}
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
			eventsDropped.Inc()
		}
	}
}
