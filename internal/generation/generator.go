package generation

import (
	"context"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
)

// Params are the inputs of one generation call.
type Params struct {
	Title      string
	RawText    string
	Difficulty domain.Difficulty
	Languages  []string
}

// Capability produces a course draft from raw text. It may be slow, may fail
// and may return malformed output; callers must validate the Draft before use.
// Implementations must honor ctx cancellation and deadlines.
type Capability interface {
	Generate(ctx context.Context, params Params) (*Draft, error)
}

// CapabilityFunc adapts a function to the Capability interface.
type CapabilityFunc func(ctx context.Context, params Params) (*Draft, error)

// Generate calls f.
func (f CapabilityFunc) Generate(ctx context.Context, params Params) (*Draft, error) {
	return f(ctx, params)
}
