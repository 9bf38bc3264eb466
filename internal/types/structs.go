package types

import (
	"strconv"
	"strings"
)

const (
	structTopName = "$top"
	structBotName = "$bot"
)

// structSentinels installs the distinguished struct top and bottom. They are
// the only struct pair whose duals are not structural mirrors.
func (l *Lattice) structSentinels() (*Type, *Type) {
	top := &Type{kind: KindStruct, name: structTopName}
	bot := &Type{kind: KindStruct, name: structBotName}
	top.key = structKey(top)
	bot.key = structKey(bot)
	l.install(top)
	l.install(bot)
	top.dual, bot.dual = bot, top
	return top, bot
}

func structKey(t *Type) string { return "S" + strconv.Quote(t.name) + "{}" }

// Struct interns an acyclic struct. Field types must already be interned.
func (l *Lattice) Struct(name string, fields ...Field) *Type {
	cb := l.OpenCycle()
	s := cb.Struct(name)
	cb.SetFields(s, fields...)
	cb.Close()
	return cb.Interned(s)
}

// MemPtr interns a pointer to an interned struct.
func (l *Lattice) MemPtr(nilc uint8, obj *Type) *Type {
	l.mustInterned(obj)
	if t, ok := l.table[ptrKey(nilc, "u"+strconv.Itoa(obj.uid))]; ok {
		return t
	}
	cb := l.OpenCycle()
	p := cb.Ptr(nilc, obj)
	cb.Close()
	return cb.Interned(p)
}

func ptrKey(nilc uint8, obj string) string {
	return "P" + strconv.Itoa(int(nilc)) + "(" + obj + ")"
}

func isRecursiveKind(k Kind) bool { return k == KindStruct || k == KindMemPtr }

// meetRecursive meets two interned structs or two interned pointers. The
// result may be cyclic, so it is assembled in a fresh cycle scope.
func (l *Lattice) meetRecursive(a, b *Type) *Type {
	cb := l.OpenCycle()
	r := cb.meet(a, b)
	cb.Close()
	return cb.Interned(r)
}

func (cb *CycleBuilder) meet(a, b *Type) *Type {
	l := cb.l
	if a == b {
		return a
	}
	if a.kind != b.kind || !isRecursiveKind(a.kind) {
		return l.Meet(a, b)
	}
	if a.uid > b.uid {
		a, b = b, a
	}
	pair := [2]*Type{a, b}
	if r, ok := cb.memo[pair]; ok {
		return r
	}
	if a.kind == KindMemPtr {
		p := cb.Ptr(max(a.nilc, b.nilc), nil)
		cb.memo[pair] = p
		p.obj = cb.meet(a.obj, b.obj)
		return p
	}
	switch {
	case a == l.StructTop:
		return b
	case b == l.StructTop:
		return a
	case a == l.StructBot || b == l.StructBot:
		return l.StructBot
	case !sameShape(a, b):
		return l.StructBot
	}
	s := cb.Struct(a.name)
	cb.memo[pair] = s
	fields := make([]Field, len(a.fields))
	for i, fa := range a.fields {
		fb := b.fields[i]
		fields[i] = Field{
			Name:  fa.Name,
			Type:  cb.meet(fa.Type, fb.Type),
			Alias: fa.Alias,
			Final: fa.Final || fb.Final,
		}
	}
	cb.SetFields(s, fields...)
	return s
}

func sameShape(a, b *Type) bool {
	if a.name != b.name || len(a.fields) != len(b.fields) {
		return false
	}
	for i := range a.fields {
		if a.fields[i].Name != b.fields[i].Name || a.fields[i].Alias != b.fields[i].Alias {
			return false
		}
	}
	return true
}

// MakeRO returns t with every reachable struct field marked final.
func (l *Lattice) MakeRO(t *Type) *Type {
	if !isRecursiveKind(t.kind) || t.IsHigh() {
		return t
	}
	cb := l.OpenCycle()
	r := cb.makeRO(t)
	cb.Close()
	return cb.Interned(r)
}

func (cb *CycleBuilder) makeRO(t *Type) *Type {
	if !isRecursiveKind(t.kind) {
		return t
	}
	if t == cb.l.StructTop || t == cb.l.StructBot {
		return t
	}
	if r, ok := cb.ro[t]; ok {
		return r
	}
	if t.kind == KindMemPtr {
		p := cb.Ptr(t.nilc, nil)
		cb.ro[t] = p
		p.obj = cb.makeRO(t.obj)
		return p
	}
	s := cb.Struct(t.name)
	cb.ro[t] = s
	fields := make([]Field, len(t.fields))
	for i, f := range t.fields {
		fields[i] = Field{Name: f.Name, Type: cb.makeRO(f.Type), Alias: f.Alias, Final: true}
	}
	cb.SetFields(s, fields...)
	return s
}

func structString(t *Type) string {
	var sb strings.Builder
	sb.WriteString(t.name)
	sb.WriteString(" {")
	for _, f := range t.fields {
		sb.WriteString(f.Name)
		if f.Final {
			sb.WriteString(":!")
		} else {
			sb.WriteByte(':')
		}
		sb.WriteString(f.Type.String())
		sb.WriteString("; ")
	}
	sb.WriteByte('}')
	return sb.String()
}

func ptrString(t *Type) string {
	if t.obj == nil {
		return "*<nil>"
	}
	if t.obj.name == structTopName && t.nilc == NilMaybe {
		return "null"
	}
	var sb strings.Builder
	if t.nilc <= NilHighChoice {
		sb.WriteByte('~')
	}
	sb.WriteByte('*')
	sb.WriteString(t.obj.name)
	if t.nilc == NilMaybe || t.nilc == NilHighChoice {
		sb.WriteByte('?')
	}
	return sb.String()
}
