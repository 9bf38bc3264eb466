package son

import "slices"

// valueTable hash-conses structurally equal nodes. The key of a node is its
// op, its ordered input identities and its op-specific extras; buckets hold
// every node sharing a hash and are disambiguated with equal.
type valueTable struct {
	buckets map[uint64][]*Node
	size    int
}

func newValueTable() *valueTable {
	return &valueTable{buckets: make(map[uint64][]*Node)}
}

// lookup returns the canonical node structurally equal to n, installing n
// when there is none. n must be unlinked.
func (t *valueTable) lookup(n *Node) *Node {
	if c := t.find(n); c != nil {
		return c
	}
	h := n.structHash()
	n.hash = h
	n.gvn = linked
	t.buckets[h] = append(t.buckets[h], n)
	t.size++
	return nil
}

// find returns the canonical node equal to n without installing n.
func (t *valueTable) find(n *Node) *Node {
	for _, c := range t.buckets[n.structHash()] {
		if c != n && equal(c, n) {
			return c
		}
	}
	return nil
}

func (t *valueTable) remove(n *Node) {
	b := t.buckets[n.hash]
	i := slices.Index(b, n)
	if i < 0 {
		fail(ErrCodeLocked, n, "linked node missing from the value table; inputs changed while locked")
	}
	b = slices.Delete(b, i, i+1)
	if len(b) == 0 {
		delete(t.buckets, n.hash)
	} else {
		t.buckets[n.hash] = b
	}
	t.size--
}

func (t *valueTable) clear() {
	clear(t.buckets)
	t.size = 0
}

// Len returns the number of linked nodes.
func (t *valueTable) Len() int { return t.size }

// unlock pulls n out of the value table so its inputs may change.
func (n *Node) unlock() {
	if n.gvn != linked {
		return
	}
	n.g.gvn.remove(n)
	n.gvn = unlinked
	n.hash = 0
}

func (n *Node) structHash() uint64 {
	h := uint64(n.op)*0x9E3779B97F4A7C15 + n.extraHash()
	for _, in := range n.ins {
		if in != nil {
			h = h ^ (h << 17) ^ (h >> 13) ^ uint64(in.id)
		}
	}
	if h == 0 {
		h = 0xDEADBEEF
	}
	return h
}

func (n *Node) extraHash() uint64 {
	switch n.op {
	case OpConstant, OpCast:
		return uint64(n.con.UID())
	case OpProj, OpCProj, OpParm:
		return uint64(n.idx)
	case OpPhi:
		return uint64(n.con.UID())
	}
	return 0
}

// equal reports whether a and b are structurally identical.
func equal(a, b *Node) bool {
	if a.op != b.op || len(a.ins) != len(b.ins) {
		return false
	}
	for i := range a.ins {
		if a.ins[i] != b.ins[i] {
			return false
		}
	}
	switch a.op {
	case OpConstant, OpCast:
		return a.con == b.con
	case OpProj, OpCProj:
		return a.idx == b.idx
	case OpParm:
		return a.idx == b.idx && a.con == b.con && !a.inProgress()
	case OpPhi:
		return a.con == b.con && !a.inProgress()
	case OpRegion:
		return !a.inProgress()
	}
	return true
}
