package scheduler

import (
	"math/rand"
	"time"
)

// Planner picks the next due time for a campaign, uniformly random within
// the campaign's interval bounds.
type Planner struct {
	rand func() float64
}

// NewPlanner creates a planner backed by the default random source
func NewPlanner() *Planner {
	return &Planner{rand: rand.Float64}
}

// NewPlannerWithRand creates a planner with an injected random source,
// for deterministic tests.
func NewPlannerWithRand(r func() float64) *Planner {
	return &Planner{rand: r}
}

// Next returns a due time offset from now by a random duration in
// [minHours, maxHours]. The draw happens at millisecond granularity so
// fractional hour bounds are honored.
func (p *Planner) Next(now time.Time, minHours, maxHours float64) time.Time {
	minMS := int64(minHours * float64(time.Hour/time.Millisecond))
	maxMS := int64(maxHours * float64(time.Hour/time.Millisecond))
	if maxMS < minMS {
		maxMS = minMS
	}

	offset := minMS + int64(p.rand()*float64(maxMS-minMS+1))
	if offset > maxMS {
		offset = maxMS
	}

	return now.Add(time.Duration(offset) * time.Millisecond)
}
