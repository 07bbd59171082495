// Package mcts implements the parallel PUCT tree search: UCTNode and its
// lazily inflated children, the SMP primitives workers coordinate with,
// and the UCTSearch driver that walks the tree to a move. The atomic
// visit/virtual-loss bookkeeping and CAS-based expansion gate are
// carried from the generic tree-search teacher this package grew out
// of; the selection formula and tree shape are concrete Go-playing
// PUCT, not the teacher's pluggable UCB1.
package mcts

import (
	"math"
	"sync/atomic"

	"github.com/zerogo-engine/zerogo/pkg/board"
)

// NodeStatus marks whether a child is still a candidate for selection.
type NodeStatus int32

const (
	Invalid NodeStatus = iota // ruled out (e.g. superko); never selected
	Pruned                    // skipped by SelectChild like Invalid; nothing in this package sets it
	Active
)

// expandState drives the node's one-shot expansion gate. A node starts
// Initial; exactly one goroutine wins the CompareAndSwap to Expanding,
// populates Children, then releases to Expanded. SingleThreadUse marks
// a node the search has decided no other thread may touch concurrently
// (used when killing superko children, which changes their Status).
type expandState uint32

const (
	stateInitial expandState = iota
	stateExpanding
	stateExpanded
	stateSingleThreadUse
)

// VirtualLossCount is added to a node's visit/virtual-loss counters
// while a descent is in flight through it, and removed again on
// backpropagation, so sibling threads see it as temporarily worse.
const VirtualLossCount = 3

// defaultMinPsaRatio is the minPsaRatio every new node stores
// (original_source's UCTNode::m_min_psa_ratio_children default).
// CreateChildren does not consult it: every child starts Active.
const defaultMinPsaRatio = 2.0

// UCTNode is one node of the shared search tree. Move/Prior are set
// once at creation and never mutated afterward; every other field is
// updated concurrently by search workers and must only be touched
// through the atomic accessors below.
//
// Update is called exactly once per simulation for every node on that
// simulation's path, root and leaf alike, so a node's visit count
// equals the number of simulations that passed through it. The one
// extra visit is the root's: when Think expands a fresh root it records
// that first evaluation with one Update of its own. First-play urgency for an unvisited child is computed from the
// parent's own current eval rather than from any separately cached
// value.
type UCTNode struct {
	Move  int16
	Prior float32

	visits      atomic.Int32
	virtualLoss atomic.Int32
	blackEvals  atomic.Uint64 // math.Float64bits of the accumulated black-perspective eval

	status      atomic.Int32
	expand      atomic.Uint32

	minPsaRatio float32
	childrenMu  SpinMutex
	children    []NodePointer
}

// NewUCTNode returns a freshly created node; Active by default.
func NewUCTNode(move int16, prior float32) *UCTNode {
	n := &UCTNode{Move: move, Prior: prior, minPsaRatio: defaultMinPsaRatio}
	n.status.Store(int32(Active))
	return n
}

// Visits returns the raw visit counter, virtual losses included.
func (n *UCTNode) Visits() int32 { return n.visits.Load() }

// VirtualLoss returns the currently applied virtual loss.
func (n *UCTNode) VirtualLoss() int32 { return n.virtualLoss.Load() }

// RealVisits returns visits with any in-flight virtual loss removed.
func (n *UCTNode) RealVisits() int32 { return n.visits.Load() - n.virtualLoss.Load() }

// Status reports whether the node is still a live selection candidate.
func (n *UCTNode) Status() NodeStatus { return NodeStatus(n.status.Load()) }

// SetStatus updates the node's selection eligibility.
func (n *UCTNode) SetStatus(s NodeStatus) { n.status.Store(int32(s)) }

// Active reports whether the node may still be selected.
func (n *UCTNode) Active() bool { return n.Status() == Active }

// ApplyVirtualLoss marks a descent as in flight through this node.
func (n *UCTNode) ApplyVirtualLoss() {
	n.visits.Add(VirtualLossCount)
	n.virtualLoss.Add(VirtualLossCount)
}

// UndoVirtualLoss reverses ApplyVirtualLoss; playSimulation calls it
// on every node of the path once the leaf value is known, just before
// backpropagating that value.
func (n *UCTNode) UndoVirtualLoss() {
	n.visits.Add(-VirtualLossCount)
	n.virtualLoss.Add(-VirtualLossCount)
}

// Update records a real playout outcome: one visit, plus eval (from
// Black's perspective) added to the running sum via AddDouble, the same
// CAS-retry accumulator original_source's SMP::atomic_add backs its
// eval sums with.
func (n *UCTNode) Update(blackEval float32) {
	n.visits.Add(1)
	AddDouble(&n.blackEvals, float64(blackEval))
}

// GetEval returns this node's win probability from toMove's
// perspective. Virtual losses bias the result away from toMove, the
// way original_source's get_eval treats an in-flight virtual loss as a
// loss for whoever is to move: it is recorded as a win for the
// opponent until the real result backpropagates and cancels it out.
// A node with zero real visits and no virtual loss (no Update has
// reached it yet) falls back to a neutral 0.5.
func (n *UCTNode) GetEval(toMove board.Color) float32 {
	vl := float64(n.virtualLoss.Load())
	visits := float64(n.visits.Load())

	if visits == 0 {
		return 0.5
	}

	blackEval := math.Float64frombits(n.blackEvals.Load())
	if toMove == board.White {
		blackEval += vl
	}
	score := blackEval / visits
	if toMove == board.White {
		score = 1.0 - score
	}
	return float32(score)
}

// Children exposes the lazily inflated child slice, populated once by
// CreateChildren. Guarded by childrenMu so a concurrent KillSuperkos
// pass never races a reader against the slice being rewritten.
func (n *UCTNode) Children() []NodePointer {
	n.childrenMu.Lock()
	defer n.childrenMu.Unlock()
	return n.children
}

// setChildren installs a freshly built child slice under childrenMu,
// original_source's m_nodemutex critical section for child-list writes.
func (n *UCTNode) setChildren(children []NodePointer) {
	n.childrenMu.Lock()
	defer n.childrenMu.Unlock()
	n.children = children
}

// Expanded reports whether Children has been populated.
func (n *UCTNode) Expanded() bool {
	return expandState(n.expand.Load()) == stateExpanded
}

// tryAcquireExpanding is the CAS gate original_source's
// acquire_expanding performs: exactly one caller may win it per node.
func (n *UCTNode) tryAcquireExpanding() bool {
	return n.expand.CompareAndSwap(uint32(stateInitial), uint32(stateExpanding))
}

func (n *UCTNode) finishExpanding() { n.expand.Store(uint32(stateExpanded)) }
func (n *UCTNode) cancelExpanding() { n.expand.Store(uint32(stateInitial)) }

// acquireSingleThreadUse marks this node as temporarily owned by one
// caller that will itself mutate Children (superko pruning).
func (n *UCTNode) acquireSingleThreadUse() bool {
	return n.expand.CompareAndSwap(uint32(stateExpanded), uint32(stateSingleThreadUse))
}

func (n *UCTNode) releaseSingleThreadUse() { n.expand.Store(uint32(stateExpanded)) }

// NodePointer is a child slot that starts as bare (move, prior) data and
// inflates into a full *UCTNode exactly once, the first time any worker
// descends into it. original_source reference-counts this inflation by
// hand; Go's garbage collector makes that bookkeeping unnecessary, so
// this is a plain CAS-guarded atomic.Pointer instead.
type NodePointer struct {
	move  int16
	prior float32
	node  atomic.Pointer[UCTNode]
}

// NewNodePointer returns an uninflated child slot.
func NewNodePointer(move int16, prior float32) NodePointer {
	return NodePointer{move: move, prior: prior}
}

// Move returns the child's move without inflating it.
func (p *NodePointer) Move() int16 { return p.move }

// Prior returns the child's policy prior without inflating it.
func (p *NodePointer) Prior() float32 { return p.prior }

// Inflated reports whether this slot has already been materialized.
func (p *NodePointer) Inflated() bool { return p.node.Load() != nil }

// InflatedNode returns the materialized node, or nil if not yet
// inflated. Use Get to inflate on demand.
func (p *NodePointer) InflatedNode() *UCTNode { return p.node.Load() }

// Get returns the child's *UCTNode, materializing it on first access.
// Concurrent callers race harmlessly: exactly one CompareAndSwap wins
// and the rest observe its result.
func (p *NodePointer) Get() *UCTNode {
	if n := p.node.Load(); n != nil {
		return n
	}
	fresh := NewUCTNode(p.move, p.prior)
	if p.node.CompareAndSwap(nil, fresh) {
		return fresh
	}
	return p.node.Load()
}
