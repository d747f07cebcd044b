package abi

import (
	"time"

	"github.com/Dicklesworthstone/frankenlibc-go/pkg/membrane"
)

// Adapter wraps a *membrane.Kernel and exposes the representative wrapped
// functions named in SPEC_FULL.md's DOMAIN STACK. Every method follows the
// uniform six-step contract of spec §4.6: build context, decide, honor
// refusal/repair, validate when Full, run the body, observe.
type Adapter struct {
	Kernel *membrane.Kernel
}

// New constructs an Adapter over kernel.
func New(kernel *membrane.Kernel) *Adapter { return &Adapter{Kernel: kernel} }

// timed runs body and returns its result along with the elapsed duration,
// used to produce the estimated_cost_ns every adapter reports to Observe.
func timed[T any](body func() T) (T, time.Duration) {
	start := time.Now()
	result := body()
	return result, time.Since(start)
}
