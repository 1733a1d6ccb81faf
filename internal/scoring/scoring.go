// Package scoring translates an armed move plus an answer outcome into an
// adjusted point delta. Resolution is a pure table lookup; the decorator
// around it is fail-open and must never surface an error into a score update.
package scoring

import (
	"go.uber.org/zap"

	"github.com/quizwire/moves-backend/internal/moves"
)

type Outcome string

const (
	OutcomeAward Outcome = "AWARD"
	OutcomeSteal Outcome = "STEAL"
	OutcomeFail  Outcome = "FAIL"
)

// Resolution is the result of applying one move to a base point magnitude.
// Points is always a non-negative magnitude; the caller owns the sign.
type Resolution struct {
	Points  int
	Label   string
	Blocked bool
}

// Resolver computes the resolution for one move type. One resolver per
// move type, looked up by enum, so new types extend the table without
// touching shared control flow.
type Resolver func(base int, outcome Outcome) Resolution

var resolvers = map[moves.MoveType]Resolver{
	moves.MoveDoubleTrouble: func(base int, outcome Outcome) Resolution {
		switch outcome {
		case OutcomeAward, OutcomeSteal:
			return Resolution{Points: base * 2, Label: "double trouble x2"}
		default:
			return Resolution{Points: base, Label: "double trouble"}
		}
	},
	moves.MoveTripleThreat: func(base int, outcome Outcome) Resolution {
		switch outcome {
		case OutcomeAward, OutcomeSteal:
			return Resolution{Points: base * 3, Label: "triple threat x3"}
		case OutcomeFail:
			return Resolution{Points: base * 2, Label: "triple threat penalty"}
		default:
			return Resolution{Points: base, Label: "triple threat"}
		}
	},
	moves.MoveSabotage: func(base int, outcome Outcome) Resolution {
		if outcome == OutcomeFail {
			return Resolution{Points: base / 2, Label: "sabotage softened"}
		}
		return Resolution{Points: base, Label: "sabotage"}
	},
	moves.MoveMegaSteal: func(base int, outcome Outcome) Resolution {
		switch outcome {
		case OutcomeAward:
			return Resolution{Points: 0, Label: "mega steal block", Blocked: true}
		case OutcomeSteal:
			return Resolution{Points: base * 2, Label: "mega steal x2"}
		default:
			return Resolution{Points: base, Label: "mega steal"}
		}
	},
}

// Resolve looks up the move's resolver and applies it to base. An unknown
// or empty move type passes base through unchanged.
func Resolve(moveType moves.MoveType, base int, outcome Outcome) Resolution {
	r, ok := resolvers[moveType]
	if !ok {
		return Resolution{Points: base}
	}
	return r(base, outcome)
}

// Context carries what the decorator needs to resolve a score change.
// MoveType is empty when the tile has no live move. Gated, when non-nil
// and false, disables move resolution entirely (feature gate off).
type Context struct {
	MoveType moves.MoveType
	Outcome  Outcome
	Gated    *bool
}

// Decorator wraps Resolve with the fail-open contract. Construct one per
// consumer so a custom table (or logger) never leaks between tests.
type Decorator struct {
	table map[moves.MoveType]Resolver
	log   *zap.Logger
}

func NewDecorator(log *zap.Logger) *Decorator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Decorator{table: resolvers, log: log}
}

// Apply translates baseDelta through the move's resolver and re-signs the
// result to match baseDelta's sign. Hard contract: never panics out — any
// fault in resolution is logged and the original baseDelta is returned.
func (d *Decorator) Apply(baseDelta int, ctx Context) (adjusted int) {
	adjusted = baseDelta
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("move resolution fault, using base delta",
				zap.Any("panic", r),
				zap.String("move_type", string(ctx.MoveType)),
				zap.String("outcome", string(ctx.Outcome)),
				zap.Int("base_delta", baseDelta),
			)
			adjusted = baseDelta
		}
	}()

	if ctx.MoveType == "" {
		return baseDelta
	}
	if ctx.Gated != nil && !*ctx.Gated {
		return baseDelta
	}

	r, ok := d.table[ctx.MoveType]
	if !ok {
		return baseDelta
	}

	base := baseDelta
	negative := base < 0
	if negative {
		base = -base
	}

	res := r(base, ctx.Outcome)
	if res.Blocked {
		return 0
	}
	if negative {
		return -res.Points
	}
	return res.Points
}

// ApplyDecorator is the package-level entry for callers without their own
// decorator instance. Faults log through the global zap logger.
func ApplyDecorator(baseDelta int, ctx Context) int {
	return (&Decorator{table: resolvers, log: zap.L()}).Apply(baseDelta, ctx)
}
