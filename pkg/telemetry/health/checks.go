package health

import (
	"context"
	"errors"
)

// ErrNoArtifact is reported by ArtifactCheck before the first successful deploy.
var ErrNoArtifact = errors.New("no rule artifact deployed")

// ArtifactCheck fails until deployed reports true.
func ArtifactCheck(deployed func() bool) CheckFunc {
	return func(ctx context.Context) error {
		if !deployed() {
			return ErrNoArtifact
		}
		return nil
	}
}

// Pinger is implemented by storage backends that can verify connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck fails when p cannot be reached.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}
