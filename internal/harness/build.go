package harness

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/seanodes/internal/son"
	"github.com/roach88/seanodes/internal/types"
)

// builder replays scenario steps as construction calls on one graph.
type builder struct {
	g      *son.Graph
	labels map[string]*son.Node
	funs   map[int]string // fidx -> step label
}

// buildGraph applies steps to g in order. A bad reference, an unknown op or
// a construction invariant failure stops the build with a LoadError.
func buildGraph(g *son.Graph, steps []NodeStep) (*builder, error) {
	b := &builder{
		g:      g,
		labels: make(map[string]*son.Node),
		funs:   make(map[int]string),
	}
	for i, step := range steps {
		var stepErr error
		if err := g.Build(func() { stepErr = b.apply(step) }); err != nil {
			stepErr = err
		}
		if stepErr != nil {
			return nil, &LoadError{
				Code:    ErrCodeBuild,
				Message: fmt.Sprintf("nodes[%d] (%s %s): %v", i, step.Op, step.ID, stepErr),
			}
		}
	}
	return b, nil
}

// node returns the live node currently labelled name, or nil.
func (b *builder) node(name string) *son.Node {
	return b.labels[norm.NFC.String(name)]
}

// funLabel names a function by the step that declared it.
func (b *builder) funLabel(fidx int) string {
	if l, ok := b.funs[fidx]; ok {
		return l
	}
	return fmt.Sprintf("fun%d", fidx)
}

func (b *builder) typ(s, def string) (*types.Type, error) {
	if s == "" {
		s = def
	}
	return ParseType(b.g.L, s)
}

// inputs resolves step.In and checks its length against min and max.
// A max of -1 means unbounded.
func (b *builder) inputs(step NodeStep, min, max int) ([]*son.Node, error) {
	if len(step.In) < min || (max >= 0 && len(step.In) > max) {
		if min == max {
			return nil, fmt.Errorf("want %d inputs, have %d", min, len(step.In))
		}
		return nil, fmt.Errorf("want at least %d inputs, have %d", min, len(step.In))
	}
	ins := make([]*son.Node, len(step.In))
	for i, ref := range step.In {
		if ref == "_" {
			if step.Op != "phi" && step.Op != "cast" {
				return nil, fmt.Errorf("in[%d]: %s takes no missing inputs", i, step.Op)
			}
			continue
		}
		n, ok := b.labels[norm.NFC.String(ref)]
		if !ok {
			return nil, fmt.Errorf("in[%d]: unknown label %q", i, ref)
		}
		ins[i] = n
	}
	return ins, nil
}

func (b *builder) define(label string, n *son.Node) { b.labels[label] = n }

func (b *builder) apply(step NodeStep) error {
	g := b.g
	switch step.Op {
	case "fun":
		ret, err := b.typ(step.Type, "int")
		if err != nil {
			return err
		}
		args := make([]*types.Type, len(step.Args))
		for i, a := range step.Args {
			if args[i], err = ParseType(g.L, a); err != nil {
				return fmt.Errorf("args[%d]: %w", i, err)
			}
		}
		fun := g.NewFunction(step.Name, ret, args...)
		b.define(step.ID, fun)
		b.define(step.ID+".rpc", fun.Parm(son.ParmRPC))
		b.define(step.ID+".mem", fun.Parm(son.ParmMem))
		for i := range args {
			b.define(fmt.Sprintf("%s.arg%d", step.ID, i), fun.Parm(son.ParmArg0+i))
		}
		b.funs[fun.Fidx()] = step.ID
		return nil

	case "con":
		t, err := b.typ(step.Type, "")
		if err != nil {
			return err
		}
		b.define(step.ID, g.Con(t))
		return nil

	case "funptr":
		ins, err := b.inputs(step, 1, 1)
		if err != nil {
			return err
		}
		if ins[0] == nil || ins[0].Op() != son.OpFun {
			return fmt.Errorf("funptr of %q, which is not a fun", step.In[0])
		}
		b.define(step.ID, g.FunPtr(ins[0]))
		return nil

	case "cast":
		ins, err := b.inputs(step, 2, 2)
		if err != nil {
			return err
		}
		if ins[1] == nil {
			return fmt.Errorf("cast of a missing value")
		}
		t, err := b.typ(step.Type, "")
		if err != nil {
			return err
		}
		b.define(step.ID, g.Cast(ins[0], ins[1], t))
		return nil

	case "if":
		ins, err := b.inputs(step, 2, 2)
		if err != nil {
			return err
		}
		iff, t, f := g.If(ins[0], ins[1])
		b.define(step.ID, iff)
		b.define(step.ID+".true", t)
		b.define(step.ID+".false", f)
		return nil

	case "region":
		ins, err := b.inputs(step, 1, -1)
		if err != nil {
			return err
		}
		b.define(step.ID, g.Region(ins...))
		return nil

	case "loop":
		ins, err := b.inputs(step, 1, 1)
		if err != nil {
			return err
		}
		b.define(step.ID, g.Loop(ins[0]))
		return nil

	case "phi":
		ins, err := b.inputs(step, 2, -1)
		if err != nil {
			return err
		}
		if ins[0] == nil {
			return fmt.Errorf("phi needs a region")
		}
		declared, err := b.typ(step.Type, "int")
		if err != nil {
			return err
		}
		name := step.Name
		if name == "" {
			name = step.ID
		}
		b.define(step.ID, g.Phi(ins[0], name, declared, ins[1:]...))
		return nil

	case "close":
		ins, err := b.inputs(step, 2, 2)
		if err != nil {
			return err
		}
		b.define(step.ID, g.Close(ins[0], ins[1]))
		return nil

	case "return":
		ins, err := b.inputs(step, 4, 4)
		if err != nil {
			return err
		}
		b.define(step.ID, g.Return(ins[0], ins[1], ins[2], ins[3]))
		return nil

	case "call":
		ins, err := b.inputs(step, 3, -1)
		if err != nil {
			return err
		}
		site := g.Call(ins[0], ins[1], ins[2], ins[3:]...)
		b.define(step.ID, site.Call)
		b.define(step.ID+".ctrl", site.Ctrl)
		b.define(step.ID+".mem", site.Mem)
		b.define(step.ID+".ret", site.Ret)
		return nil
	}

	op, ok := son.ParseOp(step.Op)
	if !ok {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	ins, err := b.inputs(step, 1, 2)
	if err != nil {
		return err
	}
	if len(ins) == 1 {
		b.define(step.ID, g.Unary(op, ins[0]))
	} else {
		b.define(step.ID, g.Binary(op, ins[0], ins[1]))
	}
	return nil
}
