package interval

import (
	"sync"
)

// Treap-based interval index.
//
// Ordering: From ASC, then insertion sequence ASC (deterministic).
// Every node also carries the largest To of its subtree, so a stabbing
// query can skip any subtree that ends at or before the probe.

type node struct {
	iv     Interval
	seq    uint64
	prio   uint64
	left   *node
	right  *node
	size   int
	maxEnd int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n == nil {
		return
	}
	n.size = 1 + nsize(n.left) + nsize(n.right)
	n.maxEnd = n.iv.To
	if n.left != nil && n.left.maxEnd > n.maxEnd {
		n.maxEnd = n.left.maxEnd
	}
	if n.right != nil && n.right.maxEnd > n.maxEnd {
		n.maxEnd = n.right.maxEnd
	}
}

// less returns true if (aFrom, aSeq) sorts before (bFrom, bSeq).
func less(aFrom int, aSeq uint64, bFrom int, bSeq uint64) bool {
	if aFrom != bFrom {
		return aFrom < bFrom
	}
	return aSeq < bSeq
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// seqToPriority scrambles the insertion sequence (splitmix64) so that
// priorities are pseudo-random yet reproducible across runs.
func seqToPriority(seq uint64) uint64 {
	z := seq + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func insert(n *node, iv Interval, seq uint64) *node {
	if n == nil {
		nn := &node{iv: iv, seq: seq, prio: seqToPriority(seq)}
		fix(nn)
		return nn
	}
	if less(iv.From, seq, n.iv.From, n.seq) {
		n.left = insert(n.left, iv, seq)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, iv, seq)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// collectStab appends, in key order, every interval containing t.
func collectStab(n *node, t int, out *[]Interval) {
	if n == nil || n.maxEnd <= t {
		return
	}
	collectStab(n.left, t, out)
	if n.iv.From > t {
		// Everything to the right starts later still.
		return
	}
	if t < n.iv.To {
		*out = append(*out, n.iv)
	}
	collectStab(n.right, t, out)
}

// collectRange appends, in key order, every interval overlapping [lo, hi).
func collectRange(n *node, lo, hi int, out *[]Interval) {
	if n == nil || n.maxEnd <= lo {
		return
	}
	collectRange(n.left, lo, hi, out)
	if n.iv.From >= hi {
		return
	}
	if n.iv.Overlaps(lo, hi) {
		*out = append(*out, n.iv)
	}
	collectRange(n.right, lo, hi, out)
}

func collectAll(n *node, out *[]Interval) {
	if n == nil {
		return
	}
	collectAll(n.left, out)
	*out = append(*out, n.iv)
	collectAll(n.right, out)
}

// Index stores intervals in an augmented treap. It is safe for concurrent
// use; a game builds it once and then only reads it.
type Index struct {
	mu     sync.RWMutex
	root   *node
	seq    uint64
	byKind map[Kind]int
}

// New creates an empty index.
func New() *Index {
	return &Index{byKind: make(map[Kind]int)}
}

// Insert adds iv in O(log n) expected time. Empty intervals and intervals
// without a payload matching their kind are rejected.
func (x *Index) Insert(iv Interval) error {
	if err := iv.validate(); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.seq++
	x.root = insert(x.root, iv, x.seq)
	x.byKind[iv.Kind]++
	return nil
}

// ActiveAt returns every interval containing t, ordered by start then
// insertion order. It runs in O(log n + k) expected time for k results.
func (x *Index) ActiveAt(t int) []Interval {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Interval, 0, 4)
	collectStab(x.root, t, &out)
	return out
}

// Overlapping returns every interval sharing a second with [lo, hi).
func (x *Index) Overlapping(lo, hi int) []Interval {
	if lo >= hi {
		return nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Interval, 0, 8)
	collectRange(x.root, lo, hi, &out)
	return out
}

// All returns every interval in key order.
func (x *Index) All() []Interval {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Interval, 0, nsize(x.root))
	collectAll(x.root, &out)
	return out
}

// Len returns the number of stored intervals.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return nsize(x.root)
}

// Count returns the number of stored intervals of kind k.
func (x *Index) Count(k Kind) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.byKind[k]
}

// End returns the largest To stored, or 0 when empty.
func (x *Index) End() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.root == nil {
		return 0
	}
	return x.root.maxEnd
}
