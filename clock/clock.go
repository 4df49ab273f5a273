// Package clock keeps several clock domains running at a fixed frequency
// ratio.
//
// A Chain orders domains from the one driven externally (the root) to the
// ones it drives. Each domain advances a counter by its Step every time it
// ticks. A domain ticks as many times as needed to catch up with the counter
// of the domain before it, so that over time the number of ticks of two
// neighbors is in the inverse ratio of their steps.
package clock

import (
	"log"
	"math"
)

// Domain is a clock domain that calls a function once per cycle.
type Domain struct {
	Name string
	Step uint64

	tick    func()
	counter uint64
	cycle   uint64
}

// NewDomain creates a domain that calls tick on every cycle.
func NewDomain(name string, step uint64, tick func()) *Domain {
	if step == 0 {
		log.Panicf("clock domain %s: step must be positive", name)
	}

	return &Domain{Name: name, Step: step, tick: tick}
}

// Cycle returns the number of cycles the domain has run.
func (d *Domain) Cycle() uint64 {
	return d.cycle
}

func (d *Domain) advance() {
	if d.tick != nil {
		d.tick()
	}

	d.counter += d.Step
	d.cycle++
}

// Chain is an ordered list of clock domains.
type Chain struct {
	domains []*Domain
}

// NewChain creates a chain. The first domain is the root.
func NewChain(domains ...*Domain) *Chain {
	if len(domains) == 0 {
		log.Panic("clock chain needs at least one domain")
	}

	return &Chain{domains: domains}
}

// Domains returns the domains of the chain, root first.
func (c *Chain) Domains() []*Domain {
	return c.domains
}

// Root returns the externally driven domain.
func (c *Chain) Root() *Domain {
	return c.domains[0]
}

// Tick runs one cycle of the root domain and as many cycles of the
// following domains as keep them in step.
func (c *Chain) Tick() {
	c.domains[0].advance()

	for i := 1; i < len(c.domains); i++ {
		prev, d := c.domains[i-1], c.domains[i]
		for d.counter < prev.counter {
			d.advance()
		}
	}

	c.resetIfAligned()
}

func (c *Chain) resetIfAligned() {
	for _, d := range c.domains[1:] {
		if d.counter != c.domains[0].counter {
			return
		}
	}

	for _, d := range c.domains {
		d.counter = 0
	}
}

// NewRatioChain creates a two-domain chain in which the CPU domain is the
// root and the DRAM domain follows at the ratio of the two frequencies. A
// cpuHz of zero runs both domains at the same rate.
func NewRatioChain(cpuHz, dramHz uint64, cpuTick, dramTick func()) *Chain {
	cpuStep, dramStep := uint64(1), uint64(1)

	if cpuHz != 0 && cpuHz != dramHz {
		num, den := ApproximateRatio(float64(dramHz) / float64(cpuHz))
		cpuStep, dramStep = max(num, 1), max(den, 1)
	}

	return NewChain(
		NewDomain("cpu", cpuStep, cpuTick),
		NewDomain("dram", dramStep, dramTick),
	)
}

// ApproximateRatio finds a fraction num/den close to x using continued
// fractions.
func ApproximateRatio(x float64) (num, den uint64) {
	const (
		maxIterations = 15
		tolerance     = 0.00005
	)

	if x <= 0 {
		return 0, 1
	}

	num, den = uint64(x), 1
	prevDen := uint64(0)
	z := x

	for i := 1; i < maxIterations-1; i++ {
		if math.Abs(x-float64(num)/float64(den)) < tolerance {
			break
		}

		frac := z - math.Floor(z)
		if frac == 0 {
			break
		}

		z = 1 / frac
		prevDen, den = den, den*uint64(math.Floor(z))+prevDen
		num = uint64(math.Round(x * float64(den)))
	}

	return num, den
}
