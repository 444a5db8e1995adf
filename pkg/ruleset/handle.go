package ruleset

import (
	"sync/atomic"

	"github.com/b3ckham/Orchestrator/pkg/rules"
)

// Handle points at the artifact evaluations run against. Readers never
// block; a reference obtained from Current stays usable after a swap.
type Handle struct {
	current atomic.Pointer[artifactRef]
}

// artifactRef boxes the interface so it can live in an atomic.Pointer.
type artifactRef struct {
	artifact rules.Artifact
}

// NewHandle creates a handle pointing at initial.
func NewHandle(initial rules.Artifact) *Handle {
	h := &Handle{}
	if initial != nil {
		h.current.Store(&artifactRef{artifact: initial})
	}
	return h
}

// Current returns the active artifact, or nil before the first swap.
func (h *Handle) Current() rules.Artifact {
	ref := h.current.Load()
	if ref == nil {
		return nil
	}
	return ref.artifact
}

// Swap makes next the active artifact and returns the one it replaced.
func (h *Handle) Swap(next rules.Artifact) (rules.Artifact, error) {
	if next == nil {
		return nil, rules.ErrNilArtifact
	}
	prev := h.current.Swap(&artifactRef{artifact: next})
	if prev == nil {
		return nil, nil
	}
	return prev.artifact, nil
}
