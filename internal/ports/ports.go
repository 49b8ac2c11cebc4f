package ports

import (
	"context"

	"github.com/forPelevin/lecturecut/internal/types"
)

// ProgressFunc receives a stage name and a fraction in [0, 1]. It may be
// called concurrently from threads the host did not create.
type ProgressFunc func(stage string, fraction float64)

type Module interface {
	Version() (string, error)
	Arguments() ([]types.Argument, error)
	Close() error
}

type Generator interface {
	Module
	Generate(ctx context.Context, input string, args []types.ArgumentResult, progress ProgressFunc) (types.Generation, error)
}

type Renderer interface {
	Module
	Render(ctx context.Context, input, output string, cuts types.CutList, args []types.ArgumentResult, progress ProgressFunc) error
}
