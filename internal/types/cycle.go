package types

import (
	"strconv"
	"strings"
)

// CycleBuilder is a scope for building possibly self-referential struct and
// pointer types. Types it hands out are scratch values: they may be wired
// into each other freely but must not reach Meet or any node until Close
// has run and Interned has mapped them to their canonical form.
type CycleBuilder struct {
	l       *Lattice
	scratch []*Type
	memo    map[[2]*Type]*Type
	ro      map[*Type]*Type
	out     map[*Type]*Type
	closed  bool
}

// OpenCycle starts a new cycle scope.
func (l *Lattice) OpenCycle() *CycleBuilder {
	return &CycleBuilder{
		l:    l,
		memo: make(map[[2]*Type]*Type),
		ro:   make(map[*Type]*Type),
	}
}

// Struct creates a scratch struct with no fields yet.
func (cb *CycleBuilder) Struct(name string) *Type {
	cb.mustOpen()
	t := &Type{kind: KindStruct, uid: -1, name: name}
	cb.scratch = append(cb.scratch, t)
	return t
}

// SetFields installs the fields of a scratch struct. Field types may be
// scratch structs or pointers from this scope, or interned types.
func (cb *CycleBuilder) SetFields(s *Type, fields ...Field) {
	cb.mustOpen()
	if s.interned() || s.kind != KindStruct {
		panic("types: SetFields on a non-scratch struct")
	}
	s.fields = append([]Field(nil), fields...)
}

// Ptr creates a scratch pointer. obj may be nil and filled in later by the
// builder itself.
func (cb *CycleBuilder) Ptr(nilc uint8, obj *Type) *Type {
	cb.mustOpen()
	t := &Type{kind: KindMemPtr, uid: -1, nilc: nilc, obj: obj}
	cb.scratch = append(cb.scratch, t)
	return t
}

// Close canonicalizes every scratch type built in this scope.
func (cb *CycleBuilder) Close() {
	cb.mustOpen()
	cb.closed = true
	cb.out = cb.l.closeSet(cb.scratch, true)
}

// Interned maps a scratch type from this scope to its interned form.
// Interned types map to themselves.
func (cb *CycleBuilder) Interned(t *Type) *Type {
	if t.interned() {
		return t
	}
	if !cb.closed {
		panic("types: Interned before Close")
	}
	r, ok := cb.out[t]
	if !ok {
		panic("types: scratch type from another cycle scope")
	}
	return r
}

func (cb *CycleBuilder) mustOpen() {
	if cb.closed {
		panic("types: cycle scope already closed")
	}
}

// recChildren lists the struct and pointer edges of t in field order.
func recChildren(t *Type) []*Type {
	if t.kind == KindMemPtr {
		return []*Type{t.obj}
	}
	var kids []*Type
	for _, f := range t.fields {
		if isRecursiveKind(f.Type.kind) {
			kids = append(kids, f.Type)
		}
	}
	return kids
}

// label is everything about t except the identity of its recursive children.
func label(t *Type) string {
	if t.kind == KindMemPtr {
		return "P" + strconv.Itoa(int(t.nilc))
	}
	var sb strings.Builder
	sb.WriteString("S")
	sb.WriteString(strconv.Quote(t.name))
	for _, f := range t.fields {
		sb.WriteString(strconv.Quote(f.Name))
		sb.WriteString(strconv.Itoa(f.Alias))
		if f.Final {
			sb.WriteByte('!')
		}
		if isRecursiveKind(f.Type.kind) {
			sb.WriteByte('*')
		} else {
			sb.WriteString(strconv.Itoa(f.Type.uid))
		}
		sb.WriteByte(';')
	}
	return sb.String()
}

// closeSet interns a scratch graph. Scratch nodes and the interned nodes
// they reach are first merged by partition refinement, so a scratch node
// equivalent to a reachable interned one resolves to it. What is left is
// interned one strongly connected component at a time, children first,
// keyed by a canonical encoding of the component. Duals are built as a
// second scratch graph and closed the same way.
func (l *Lattice) closeSet(scratch []*Type, withDuals bool) map[*Type]*Type {
	for _, t := range scratch {
		if t.kind == KindMemPtr && t.obj == nil {
			panic("types: scratch pointer without a target")
		}
		if t.kind == KindStruct && (t.name == structTopName || t.name == structBotName) && len(t.fields) > 0 {
			panic("types: reserved struct name " + t.name)
		}
		for _, f := range t.fields {
			if f.Type == nil {
				panic("types: field " + f.Name + " has no type")
			}
			switch f.Type.kind {
			case KindStruct:
				panic("types: field " + f.Name + " holds a struct by value")
			case KindMemPtr:
			default:
				l.mustInterned(f.Type)
			}
		}
	}

	// Gather scratch nodes and the interned nodes reachable from them.
	index := make(map[*Type]int)
	var nodes []*Type
	var visit func(t *Type)
	visit = func(t *Type) {
		if _, ok := index[t]; ok {
			return
		}
		index[t] = len(nodes)
		nodes = append(nodes, t)
		for _, c := range recChildren(t) {
			visit(c)
		}
	}
	for _, t := range scratch {
		visit(t)
	}

	class := refine(nodes, index)

	// One canonical node per class: the interned member when there is one,
	// otherwise a fresh copy that becomes a candidate for installation.
	canon := make(map[int]*Type)
	for _, t := range nodes {
		c := class[index[t]]
		if t.interned() {
			if prev, ok := canon[c]; !ok || !prev.interned() || t.uid < prev.uid {
				canon[c] = t
			}
			continue
		}
		if _, ok := canon[c]; !ok {
			canon[c] = &Type{kind: t.kind, uid: -1, name: t.name, nilc: t.nilc}
		}
	}
	var fresh []*Type
	seen := make(map[*Type]bool)
	for _, t := range nodes {
		rep := canon[class[index[t]]]
		if rep.interned() || seen[rep] {
			continue
		}
		seen[rep] = true
		fresh = append(fresh, rep)
		if t.kind == KindMemPtr {
			rep.obj = canon[class[index[t.obj]]]
			continue
		}
		rep.fields = make([]Field, len(t.fields))
		for i, f := range t.fields {
			if isRecursiveKind(f.Type.kind) {
				f.Type = canon[class[index[f.Type]]]
			}
			rep.fields[i] = f
		}
	}

	resolved := make(map[*Type]*Type)
	resolve := func(t *Type) *Type {
		if r, ok := resolved[t]; ok {
			return r
		}
		return t
	}
	var installed []*Type
	for _, scc := range sccs(fresh) {
		member := make(map[*Type]bool, len(scc))
		for _, t := range scc {
			member[t] = true
		}
		for _, t := range scc {
			if t.kind == KindMemPtr {
				if !member[t.obj] {
					t.obj = resolve(t.obj)
				}
				continue
			}
			for i := range t.fields {
				if ft := t.fields[i].Type; isRecursiveKind(ft.kind) && !member[ft] {
					t.fields[i].Type = resolve(ft)
				}
			}
		}
		keys := make([]string, len(scc))
		hits := 0
		for i, t := range scc {
			keys[i] = encode(t, member)
			if got, ok := l.table[keys[i]]; ok {
				resolved[t] = got
				hits++
			}
		}
		if hits == len(scc) {
			continue
		}
		if hits != 0 {
			panic("types: partially interned cycle")
		}
		for i, t := range scc {
			t.key = keys[i]
			l.install(t)
			resolved[t] = t
			installed = append(installed, t)
		}
	}

	out := make(map[*Type]*Type, len(scratch))
	for _, t := range scratch {
		out[t] = resolve(canon[class[index[t]]])
	}
	if withDuals && len(installed) > 0 {
		l.installDuals(installed)
	}
	return out
}

// installDuals builds the structural mirror of freshly installed nodes,
// interns it, and cross-links the pairs.
func (l *Lattice) installDuals(installed []*Type) {
	mirror := make(map[*Type]*Type, len(installed))
	for _, t := range installed {
		d := &Type{kind: t.kind, uid: -1, name: t.name, nilc: 3 - t.nilc}
		if t.kind == KindStruct {
			d.nilc = 0
			switch t.name {
			case structTopName:
				d.name = structBotName
			case structBotName:
				d.name = structTopName
			}
		}
		mirror[t] = d
	}
	dualOf := func(t *Type) *Type {
		if d, ok := mirror[t]; ok {
			return d
		}
		return t.dual
	}
	scratch := make([]*Type, 0, len(installed))
	for _, t := range installed {
		d := mirror[t]
		if t.kind == KindMemPtr {
			d.obj = dualOf(t.obj)
		} else {
			d.fields = make([]Field, len(t.fields))
			for i, f := range t.fields {
				d.fields[i] = Field{Name: f.Name, Type: dualOf(f.Type), Alias: f.Alias, Final: !f.Final}
			}
		}
		scratch = append(scratch, d)
	}
	out := l.closeSet(scratch, false)
	for _, t := range installed {
		d := out[mirror[t]]
		if d.dual != nil && d.dual != t {
			panic("types: dual already paired: " + d.String())
		}
		t.dual = d
		d.dual = t
	}
}

// refine computes the coarsest partition of nodes that respects labels and
// child classes. It returns the class id of each node by index.
func refine(nodes []*Type, index map[*Type]int) []int {
	class := make([]int, len(nodes))
	ids := make(map[string]int)
	for i, t := range nodes {
		lbl := label(t)
		id, ok := ids[lbl]
		if !ok {
			id = len(ids)
			ids[lbl] = id
		}
		class[i] = id
	}
	n := len(ids)
	for {
		next := make([]int, len(nodes))
		sigs := make(map[string]int)
		for i, t := range nodes {
			var sb strings.Builder
			sb.WriteString(strconv.Itoa(class[i]))
			for _, c := range recChildren(t) {
				sb.WriteByte(',')
				sb.WriteString(strconv.Itoa(class[index[c]]))
			}
			sig := sb.String()
			id, ok := sigs[sig]
			if !ok {
				id = len(sigs)
				sigs[sig] = id
			}
			next[i] = id
		}
		class = next
		if len(sigs) == n {
			return class
		}
		n = len(sigs)
	}
}

// encode renders t and its component as a string that is equal for two
// nodes exactly when they denote the same type. Children outside the
// component are already interned and appear by uid.
func encode(t *Type, member map[*Type]bool) string {
	var sb strings.Builder
	order := make(map[*Type]int)
	var walk func(t *Type)
	walk = func(t *Type) {
		if !member[t] {
			sb.WriteByte('u')
			sb.WriteString(strconv.Itoa(t.uid))
			return
		}
		if k, ok := order[t]; ok {
			sb.WriteByte('#')
			sb.WriteString(strconv.Itoa(k))
			return
		}
		order[t] = len(order)
		if t.kind == KindMemPtr {
			sb.WriteString("P")
			sb.WriteString(strconv.Itoa(int(t.nilc)))
			sb.WriteByte('(')
			walk(t.obj)
			sb.WriteByte(')')
			return
		}
		sb.WriteString("S")
		sb.WriteString(strconv.Quote(t.name))
		sb.WriteByte('{')
		for i, f := range t.fields {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(strconv.Quote(f.Name))
			sb.WriteByte(':')
			sb.WriteString(strconv.Itoa(f.Alias))
			if f.Final {
				sb.WriteByte('!')
			}
			sb.WriteByte('=')
			if isRecursiveKind(f.Type.kind) {
				walk(f.Type)
			} else {
				sb.WriteByte('u')
				sb.WriteString(strconv.Itoa(f.Type.uid))
			}
		}
		sb.WriteByte('}')
	}
	walk(t)
	return sb.String()
}

// sccs returns the strongly connected components of the fresh nodes in
// reverse topological order: every component precedes the components that
// reach it.
func sccs(fresh []*Type) [][]*Type {
	inSet := make(map[*Type]bool, len(fresh))
	for _, t := range fresh {
		inSet[t] = true
	}
	idx := make(map[*Type]int)
	low := make(map[*Type]int)
	onStack := make(map[*Type]bool)
	var stack []*Type
	var out [][]*Type
	counter := 0

	var strongConnect func(v *Type)
	strongConnect = func(v *Type) {
		idx[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range recChildren(v) {
			if !inSet[w] {
				continue
			}
			if _, ok := idx[w]; !ok {
				strongConnect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], idx[w])
			}
		}

		if low[v] == idx[v] {
			var scc []*Type
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			out = append(out, scc)
		}
	}
	for _, v := range fresh {
		if _, ok := idx[v]; !ok {
			strongConnect(v)
		}
	}
	return out
}
