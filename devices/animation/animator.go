// Package animation provides time-based eased animators that are sampled
// explicitly, so the caller owns the clock and the scheduling.
package animation

import (
	"math"
	"time"
)

// Easing maps progress in [0,1] to eased progress in [0,1].
type Easing func(t float64) float64

func Linear(t float64) float64 {
	return t
}

// OutQuartic decelerates towards the end: 1-(1-t)^4.
func OutQuartic(t float64) float64 {
	return 1 - math.Pow(1-t, 4)
}

// Animator interpolates from one value to another over a fixed duration.
// The clock starts at the first Tick unless Start was called.
type Animator struct {
	from     float64
	to       float64
	duration time.Duration
	easing   Easing

	start   time.Time
	started bool
	done    bool
}

func New(from, to float64, duration time.Duration, easing Easing) *Animator {
	if easing == nil {
		easing = Linear
	}
	return &Animator{
		from:     from,
		to:       to,
		duration: duration,
		easing:   easing,
	}
}

func NewOutQuartic(from, to float64, duration time.Duration) *Animator {
	return New(from, to, duration, OutQuartic)
}

func (a *Animator) Start(now time.Time) {
	a.start = now
	a.started = true
	a.done = false
}

// Tick returns the value at now. Once now reaches the end of the animation it
// returns the destination and the animator is done.
func (a *Animator) Tick(now time.Time) float64 {
	if !a.started {
		a.Start(now)
	}

	elapsed := now.Sub(a.start)
	if a.duration <= 0 || elapsed >= a.duration {
		a.done = true
		return a.to
	}
	if elapsed < 0 {
		return a.from
	}

	progress := float64(elapsed) / float64(a.duration)
	return a.from + (a.to-a.from)*a.easing(progress)
}

// Done reports whether a tick at or past the duration has been sampled.
func (a *Animator) Done() bool {
	return a.done
}

func (a *Animator) Duration() time.Duration {
	return a.duration
}
