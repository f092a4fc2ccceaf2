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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/planexpert/services/planexpert/state"
	"github.com/AleutianAI/planexpert/services/planexpert/tree"
)

func TestNotifier(t *testing.T) {
	n := NewNotifier()
	a, cancelA := n.Subscribe(4)
	b, cancelB := n.Subscribe(1)
	assert.Equal(t, 2, n.Subscribers())

	n.Publish(EventInstanceAdded, "r1")
	n.Publish(EventInstanceAdded, "r2")

	first := <-a
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, EventInstanceAdded, first.Type)
	assert.Equal(t, "r1", first.Subject)
	assert.Equal(t, uint64(2), (<-a).Seq)

	assert.Equal(t, "r1", (<-b).Subject)
	select {
	case ev := <-b:
		t.Fatalf("full subscriber should have missed %v", ev)
	default:
	}

	cancelB()
	cancelB()
	_, open := <-b
	assert.False(t, open, "cancel closes the channel")
	assert.Equal(t, 1, n.Subscribers())

	cancelA()
	n.Publish(EventCleared, "")
	assert.Zero(t, n.Subscribers())
}

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
		return Event{}
	}
}

func TestStore_PublishesCommittedChanges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	events, cancel := s.Events().Subscribe(32)
	defer cancel()

	require.NoError(t, s.AddInstance(ctx, state.Instance{Name: "r1"}))
	require.NoError(t, s.AddInstance(ctx, state.Instance{Name: "hall"}))
	assert.Error(t, s.AddPredicate(ctx, state.Predicate{Name: "at", Params: []string{"r1", "nowhere"}}))
	require.NoError(t, s.AddPredicate(ctx, state.Predicate{Name: "at", Params: []string{"r1", "hall"}}))
	require.NoError(t, s.AddFunction(ctx, state.Function{Name: "battery", Params: []string{"r1"}, Value: 9}))
	require.NoError(t, s.SetGoal(ctx, tree.Build(tree.Pred("at", "r1", "hall"))))
	require.NoError(t, s.ClearGoal(ctx))
	require.NoError(t, s.RemoveInstance(ctx, "r1"))
	require.NoError(t, s.Clear(ctx))

	want := []struct {
		typ     EventType
		subject string
	}{
		{EventInstanceAdded, "r1"},
		{EventInstanceAdded, "hall"},
		{EventPredicateAdded, "(at r1 hall)"},
		{EventFunctionSet, "(= (battery r1) 9)"},
		{EventGoalSet, "(at r1 hall)"},
		{EventGoalCleared, ""},
		{EventInstanceRemoved, "r1"},
		{EventCleared, ""},
	}
	for i, w := range want {
		ev := recv(t, events)
		assert.Equal(t, w.typ, ev.Type, "event %d", i)
		assert.Equal(t, w.subject, ev.Subject, "event %d", i)
	}
}

func TestStore_NoOpPredicateWritesPublishNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	events, cancel := s.Events().Subscribe(32)
	defer cancel()

	at := state.Predicate{Name: "at", Params: []string{"r1", "hall"}}
	require.NoError(t, s.AddInstance(ctx, state.Instance{Name: "r1"}))
	require.NoError(t, s.AddInstance(ctx, state.Instance{Name: "hall"}))
	require.NoError(t, s.AddPredicate(ctx, at))
	require.NoError(t, s.AddPredicate(ctx, at))
	require.NoError(t, s.RemovePredicate(ctx, state.Predicate{Name: "at", Params: []string{"hall", "r1"}}))
	require.NoError(t, s.RemovePredicate(ctx, at))
	require.NoError(t, s.RemovePredicate(ctx, at))

	ok, err := s.ExistPredicate(ctx, at)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []EventType{EventInstanceAdded, EventInstanceAdded, EventPredicateAdded, EventPredicateRemoved}
	for i, w := range want {
		assert.Equal(t, w, recv(t, events).Type, "event %d", i)
	}
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestClient_Watch(t *testing.T) {
	client, store := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := client.Watch(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return store.Events().Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, client.AddInstance(ctx, state.Instance{Name: "r1"}))
	ev := recv(t, events)
	assert.Equal(t, EventInstanceAdded, ev.Type)
	assert.Equal(t, "r1", ev.Subject)

	require.NoError(t, store.AddFunction(ctx, state.Function{Name: "battery", Params: []string{"r1"}, Value: 3}))
	ev = recv(t, events)
	assert.Equal(t, EventFunctionSet, ev.Type)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return store.Events().Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestClient_WatchUnreachable(t *testing.T) {
	client, err := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = client.Watch(context.Background())
	assert.ErrorIs(t, err, ErrServer)
}
