// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package containers

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrFsmInvalidTransition = errors.New("invalid state transition")
	ErrFsmEventNotFound     = errors.New("event not found")
	ErrFsmNoTransitions     = errors.New("no transitions specified")
)

// FsmEvent declares that an event of type Typ moves the machine from any of
// the From states into the To state.
type FsmEvent[E fmt.Stringer, S comparable] struct {
	Typ  E
	From []S
	To   S
}

// CurrentState is the machine's state along with the event that produced it.
type CurrentState[E fmt.Stringer, S comparable] struct {
	State       S
	SourceEvent E
}

type executedTransition[E fmt.Stringer, S comparable] struct {
	From  S
	To    S
	Event E
}

// Fsm is a finite state machine over states S driven by events E. Events are
// keyed by their String() value, so two event types must not share a name.
// All methods are safe for concurrent use.
type Fsm[E fmt.Stringer, S comparable] struct {
	mutex               sync.RWMutex
	curr                *CurrentState[E, S]
	allowed             map[string]map[S]S
	trackTransitions    bool
	transitionsExecuted []executedTransition[E, S]
}

type Opt[E fmt.Stringer, S comparable] func(*Fsm[E, S])

// WithTrackedTransitions records every executed transition, which is useful
// for inspecting a machine's history in tests and diagnostics.
func WithTrackedTransitions[E fmt.Stringer, S comparable]() Opt[E, S] {
	return func(f *Fsm[E, S]) {
		f.trackTransitions = true
	}
}

func NewFsm[E fmt.Stringer, S comparable](
	startState S,
	transitions []*FsmEvent[E, S],
	opts ...Opt[E, S],
) (*Fsm[E, S], error) {
	if len(transitions) == 0 {
		return nil, ErrFsmNoTransitions
	}
	allowed := make(map[string]map[S]S, len(transitions))
	for _, ev := range transitions {
		name := ev.Typ.String()
		if allowed[name] == nil {
			allowed[name] = make(map[S]S, len(ev.From))
		}
		for _, from := range ev.From {
			allowed[name][from] = ev.To
		}
	}
	fsm := &Fsm[E, S]{
		curr:    &CurrentState[E, S]{State: startState},
		allowed: allowed,
	}
	for _, o := range opts {
		o(fsm)
	}
	return fsm, nil
}

func (f *Fsm[E, S]) Current() *CurrentState[E, S] {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.curr
}

// Do applies an event. If the event is unknown it fails with
// ErrFsmEventNotFound; if it is not allowed from the current state it fails
// with ErrFsmInvalidTransition and the state is left unchanged.
func (f *Fsm[E, S]) Do(event E) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	targets, ok := f.allowed[event.String()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFsmEventNotFound, event.String())
	}
	to, ok := targets[f.curr.State]
	if !ok {
		return fmt.Errorf("%w: event %s from state %v", ErrFsmInvalidTransition, event.String(), f.curr.State)
	}
	if f.trackTransitions {
		f.transitionsExecuted = append(f.transitionsExecuted, executedTransition[E, S]{
			From:  f.curr.State,
			To:    to,
			Event: event,
		})
	}
	f.curr = &CurrentState[E, S]{State: to, SourceEvent: event}
	return nil
}

// TransitionsExecuted returns a copy of the recorded history. Empty unless
// the machine was built with WithTrackedTransitions.
func (f *Fsm[E, S]) TransitionsExecuted() []struct {
	From S
	To   S
} {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	out := make([]struct {
		From S
		To   S
	}, len(f.transitionsExecuted))
	for i, tr := range f.transitionsExecuted {
		out[i].From = tr.From
		out[i].To = tr.To
	}
	return out
}
