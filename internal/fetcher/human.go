package fetcher

import (
	"context"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Span is an inclusive integer range.
type Span struct{ Min, Max int }

func (s Span) pick(r *rand.Rand) int {
	if s.Max <= s.Min {
		return s.Min
	}
	return s.Min + r.Intn(s.Max-s.Min+1)
}

// HumanConfig bounds the randomized interaction performed by the stealth tier.
type HumanConfig struct {
	PreDelayMs  Span
	Moves       Span
	MoveX       Span
	MoveY       Span
	MoveSteps   Span
	MovePauseMs Span
	Scrolls     Span
	ScrollPx    Span
	ScrollPause Span
	FinalWaitMs Span
}

// DefaultHumanConfig returns the interaction ranges used in production.
func DefaultHumanConfig() HumanConfig {
	return HumanConfig{
		PreDelayMs:  Span{500, 1500},
		Moves:       Span{3, 7},
		MoveX:       Span{100, 1800},
		MoveY:       Span{100, 900},
		MoveSteps:   Span{5, 15},
		MovePauseMs: Span{100, 300},
		Scrolls:     Span{2, 5},
		ScrollPx:    Span{300, 700},
		ScrollPause: Span{300, 800},
		FinalWaitMs: Span{3000, 5000},
	}
}

// Move is one planned mouse movement.
type Move struct {
	X, Y  float64
	Steps int
	Pause time.Duration
}

// Scroll is one planned wheel scroll.
type Scroll struct {
	DeltaY float64
	Pause  time.Duration
}

// InteractionPlan is a concrete draw from a HumanConfig.
type InteractionPlan struct {
	PreDelay  time.Duration
	Moves     []Move
	Scrolls   []Scroll
	FinalWait time.Duration
}

// Plan draws a concrete interaction sequence.
func (hc HumanConfig) Plan(r *rand.Rand) InteractionPlan {
	ms := func(s Span) time.Duration { return time.Duration(s.pick(r)) * time.Millisecond }

	p := InteractionPlan{PreDelay: ms(hc.PreDelayMs), FinalWait: ms(hc.FinalWaitMs)}
	for i, n := 0, hc.Moves.pick(r); i < n; i++ {
		p.Moves = append(p.Moves, Move{
			X:     float64(hc.MoveX.pick(r)),
			Y:     float64(hc.MoveY.pick(r)),
			Steps: hc.MoveSteps.pick(r),
			Pause: ms(hc.MovePauseMs),
		})
	}
	for i, n := 0, hc.Scrolls.pick(r); i < n; i++ {
		p.Scrolls = append(p.Scrolls, Scroll{
			DeltaY: float64(hc.ScrollPx.pick(r)),
			Pause:  ms(hc.ScrollPause),
		})
	}
	return p
}

// perform replays the post-navigation part of a plan on a page. Mouse and
// scroll errors are ignored; only context cancellation stops it.
func (p InteractionPlan) perform(ctx context.Context, page *rod.Page) error {
	for _, m := range p.Moves {
		_ = page.Mouse.MoveLinear(proto.Point{X: m.X, Y: m.Y}, m.Steps)
		if err := sleepContext(ctx, m.Pause); err != nil {
			return err
		}
	}
	for _, s := range p.Scrolls {
		_ = page.Mouse.Scroll(0, s.DeltaY, 4)
		if err := sleepContext(ctx, s.Pause); err != nil {
			return err
		}
	}
	return sleepContext(ctx, p.FinalWait)
}
