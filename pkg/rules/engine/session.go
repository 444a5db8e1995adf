package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/b3ckham/Orchestrator/pkg/facts"
	"github.com/b3ckham/Orchestrator/pkg/rules"
	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
)

// Session is the working memory of one evaluation against a KnowledgeBase.
// Sessions are not meant to be shared between goroutines beyond Dispose,
// which may be called concurrently with FireAll.
type Session struct {
	kb            *KnowledgeBase
	sink          rules.ResultSink
	logger        *slog.Logger
	scriptTimeout time.Duration

	mu       sync.Mutex
	memory   map[facts.Kind]facts.Fact
	focus    string
	vm       *goja.Runtime
	disposed bool
	release  func()
}

var _ rules.Session = (*Session)(nil)

// Insert implements rules.Session.
func (s *Session) Insert(fact facts.Fact) error {
	if fact == nil {
		return errors.New("cannot insert nil fact")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return rules.ErrSessionDisposed
	}
	s.memory[fact.Kind()] = fact
	return nil
}

// Focus implements rules.Session. A group without rules is accepted; firing
// then does nothing.
func (s *Session) Focus(group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return rules.ErrSessionDisposed
	}
	s.focus = group
	return nil
}

// FireAll implements rules.Session. Facts cannot change while a session
// fires, so one pass over the agenda exhausts it.
func (s *Session) FireAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return 0, rules.ErrSessionDisposed
	}
	group := s.focus
	if group == "" {
		group = ast.DefaultAgendaGroup
	}
	memory := make(map[facts.Kind]facts.Fact, len(s.memory))
	for k, v := range s.memory {
		memory[k] = v
	}
	s.mu.Unlock()

	agenda := make([]*compiledRule, 0, len(s.kb.groups[group]))
	for _, r := range s.kb.groups[group] {
		matched, err := matchRule(r, memory)
		if err != nil {
			return 0, err
		}
		if matched {
			agenda = append(agenda, r)
		}
	}

	fired := 0
	for _, r := range agenda {
		if err := ctx.Err(); err != nil {
			return fired, fmt.Errorf("firing interrupted after %d rules: %w", fired, err)
		}

		halt, err := s.fire(ctx, r, memory)
		fired++
		if err != nil {
			return fired, err
		}

		s.logger.Debug("rule fired",
			"rule_set", r.ruleSet,
			"rule", r.name,
			"agenda_group", r.group,
			"salience", r.salience,
		)

		if halt {
			break
		}
	}

	return fired, nil
}

// fire executes the actions of one activation and reports whether a halt
// action ran.
func (s *Session) fire(ctx context.Context, r *compiledRule, memory map[facts.Kind]facts.Fact) (bool, error) {
	for _, a := range r.actions {
		switch a.typ {
		case ast.ActionTypeMatch:
			s.sink.SetMatch(a.flag)
		case ast.ActionTypeOutcome:
			s.sink.SetOutcome(a.text)
		case ast.ActionTypeReason:
			s.sink.AddReason(a.text)
		case ast.ActionTypeHalt:
			return true, nil
		case ast.ActionTypeScript:
			if err := s.runScript(ctx, r, a, memory); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

// Dispose implements rules.Session.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}
	s.disposed = true
	if s.vm != nil {
		s.vm.Interrupt(rules.ErrSessionDisposed)
		s.vm = nil
	}
	s.memory = nil
	if s.release != nil {
		s.release()
	}
}

// Disposed reports whether Dispose has been called.
func (s *Session) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
