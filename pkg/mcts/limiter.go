package mcts

import (
	"sync/atomic"
)

// StopReason records why a search stopped, as a bitmask so more than
// one cause can be reported (e.g. movetime and an external interrupt
// landing in the same poll). Grounded on the teacher's StopReason.
type StopReason int

const (
	StopNone      StopReason = 0
	StopInterrupt StopReason = 1 << iota
	StopMovetime
	StopMemory
	StopVisits
)

func (sr StopReason) String() string {
	if sr == StopNone {
		return "None"
	}
	names := []struct {
		flag StopReason
		name string
	}{
		{StopInterrupt, "Interrupt"},
		{StopMovetime, "Movetime"},
		{StopMemory, "Memory"},
		{StopVisits, "Visits"},
	}
	out := ""
	for _, n := range names {
		if sr&n.flag == n.flag {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	return out
}

// assumedNodeBytes approximates one UCTNode's resident size for
// translating a byte budget into a node-count budget; original_source
// does the analogous computation in Network::initialize's memory
// accounting.
const assumedNodeBytes = 64

// Limiter polls a Limits budget against the live search state
// (simulations completed so far in this Think call) and decides when to stop, mirroring the teacher's
// Limiter/Ok/Expand contract but collapsed to the single shared-tree
// PUCT search this package drives (no per-thread node/depth counters).
type Limiter struct {
	limits  *Limits
	Timer   *Timer
	maxSize uint32
	expand  atomic.Bool
	stop    atomic.Bool
	reason  StopReason
}

// NewLimiter returns a limiter with DefaultLimits and a fresh Timer.
func NewLimiter() *Limiter {
	l := &Limiter{limits: DefaultLimits(), Timer: NewTimer()}
	l.expand.Store(true)
	return l
}

// Reset restarts the timer and clears the stop/expand/reason state for
// a new think() call, applying the currently configured Limits.
func (l *Limiter) Reset() {
	l.Timer.Movetime(l.limits.Movetime)
	l.Timer.Reset()
	l.stop.Store(false)
	l.expand.Store(true)
	l.reason = StopNone

	if l.limits.ByteSize != DefaultByteSizeLimit {
		l.maxSize = uint32(l.limits.ByteSize / assumedNodeBytes)
	} else {
		l.maxSize = DefaultVisitsLimit
	}
}

// SetLimits installs a new Limits for the next Reset.
func (l *Limiter) SetLimits(limits *Limits) { l.limits = limits }

// Limits returns the currently configured Limits.
func (l *Limiter) Limits() *Limits { return l.limits }

// SetStop requests an early interrupt.
func (l *Limiter) SetStop(v bool) { l.stop.Store(v) }

// Stop reports whether an interrupt was requested.
func (l *Limiter) Stop() bool { return l.stop.Load() }

// Elapsed returns milliseconds since Reset.
func (l *Limiter) Elapsed() uint32 { return uint32(l.Timer.Deltatime()) }

// Expand reports whether the tree may still grow; false once the
// memory budget has been exhausted, mirroring original_source's
// behavior of freezing tree growth rather than stopping outright when
// memory runs low but time/visits remain.
func (l *Limiter) Expand() bool { return l.expand.Load() }

// Ok reports whether the search should keep running given the number
// of simulations completed so far in this Think call, applying the memory-exhausted-but-time-remaining
// carve-out from EvaluateStopReason/OkMask in the teacher.
func (l *Limiter) Ok(visits uint32) bool {
	if l.Stop() {
		l.reason |= StopInterrupt
		return false
	}
	if l.Timer.IsEnd() {
		l.reason |= StopMovetime
		return false
	}
	if l.limits.MaxVisits != DefaultVisitsLimit && visits >= l.limits.MaxVisits {
		l.reason |= StopVisits
		return false
	}
	if l.maxSize != DefaultVisitsLimit && visits >= l.maxSize {
		if l.Timer.IsSet() || l.limits.MaxVisits != DefaultVisitsLimit {
			l.expand.Store(false)
			return true
		}
		l.reason |= StopMemory
		return false
	}
	return true
}

// StopReason returns the accumulated stop reasons from the most recent
// Ok calls that returned false.
func (l *Limiter) StopReason() StopReason { return l.reason }
