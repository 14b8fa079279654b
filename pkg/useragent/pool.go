package useragent

import (
	"math/rand/v2"
	"sync/atomic"
)

// DefaultPool is a set of current desktop browser User-Agents.
var DefaultPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
}

// Rotation selects how a Pool picks the next User-Agent.
type Rotation int

const (
	RoundRobin Rotation = iota
	Random
)

// Pool hands out User-Agent strings. It is safe for concurrent use.
type Pool struct {
	uas      []string
	rotation Rotation
	counter  atomic.Uint64
}

// NewPool creates a pool over uas, falling back to DefaultPool when empty.
func NewPool(uas []string, rotation Rotation) *Pool {
	if len(uas) == 0 {
		uas = DefaultPool
	}
	return &Pool{
		uas:      append([]string(nil), uas...),
		rotation: rotation,
	}
}

// Next returns the next User-Agent according to the pool's rotation.
func (p *Pool) Next() string {
	if len(p.uas) == 0 {
		return ""
	}
	if p.rotation == Random {
		return p.uas[rand.IntN(len(p.uas))]
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// First returns the pool's primary User-Agent, used when a stable identity
// is needed (for example when matching robots.txt groups).
func (p *Pool) First() string {
	if len(p.uas) == 0 {
		return ""
	}
	return p.uas[0]
}

// Len returns the number of User-Agents in the pool.
func (p *Pool) Len() int {
	return len(p.uas)
}
