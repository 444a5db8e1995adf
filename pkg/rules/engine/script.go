package engine

import (
	"context"
	"time"

	"github.com/dop251/goja"

	"github.com/b3ckham/Orchestrator/pkg/facts"
	"github.com/b3ckham/Orchestrator/pkg/rules"
)

// runtime returns the session's script runtime, creating it on first use.
func (s *Session) runtime(memory map[facts.Kind]facts.Fact) (*goja.Runtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return nil, rules.ErrSessionDisposed
	}
	if s.vm != nil {
		return s.vm, nil
	}

	vm := goja.New()
	sink := s.sink

	response := vm.NewObject()
	if err := response.Set("setMatch", func(matched bool) { sink.SetMatch(matched) }); err != nil {
		return nil, err
	}
	if err := response.Set("setOutcome", func(outcome string) { sink.SetOutcome(outcome) }); err != nil {
		return nil, err
	}
	if err := response.Set("addReason", func(reason string) { sink.AddReason(reason) }); err != nil {
		return nil, err
	}
	if err := vm.Set("response", response); err != nil {
		return nil, err
	}

	exported := make(map[string]any, len(memory))
	for kind, fact := range memory {
		exported[string(kind)] = fact.Export()
	}
	if err := vm.Set("facts", exported); err != nil {
		return nil, err
	}

	s.vm = vm
	return vm, nil
}

// runScript executes a compiled script action. The run is interrupted when
// ctx ends or the script timeout elapses.
func (s *Session) runScript(ctx context.Context, r *compiledRule, a *compiledAction, memory map[facts.Kind]facts.Fact) error {
	vm, err := s.runtime(memory)
	if err != nil {
		return &ScriptError{Rule: r.name, Location: a.location, Cause: err}
	}

	if err := vm.Set("rule", r.name); err != nil {
		return &ScriptError{Rule: r.name, Location: a.location, Cause: err}
	}

	disarm := armInterrupts(ctx, s.scriptTimeout, vm.Interrupt)
	_, err = vm.RunProgram(a.program)
	disarm()
	vm.ClearInterrupt()

	if err != nil {
		return &ScriptError{Rule: r.name, Location: a.location, Cause: err}
	}
	return nil
}

// armInterrupts calls interrupt when ctx ends or timeout elapses. The
// returned disarm cancels both and waits for a callback that has already
// started, so no interrupt is delivered after disarm returns.
func armInterrupts(ctx context.Context, timeout time.Duration, interrupt func(v any)) (disarm func()) {
	ctxFired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(ctxFired)
		interrupt(ctx.Err())
	})

	var timer *time.Timer
	timerFired := make(chan struct{})
	if timeout > 0 {
		timer = time.AfterFunc(timeout, func() {
			defer close(timerFired)
			interrupt(context.DeadlineExceeded)
		})
	}

	return func() {
		if !stop() {
			<-ctxFired
		}
		if timer != nil && !timer.Stop() {
			<-timerFired
		}
	}
}
