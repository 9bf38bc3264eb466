package son

import "fmt"

// Op is the closed set of node kinds.
type Op uint8

const (
	OpStart Op = iota
	OpStop
	OpConstant
	OpCast

	OpIf
	OpCProj
	OpRegion
	OpLoop
	OpReturn

	OpPhi
	OpProj

	OpFun
	OpParm
	OpCall
	OpCallEnd

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMinus
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpSar

	OpEQ
	OpLT
	OpLE
	OpEQF
	OpLTF
	OpLEF
	OpNot

	OpAddF
	OpSubF
	OpMulF
	OpDivF
	OpMinusF
	OpToFloat

	numOps
)

var opNames = [numOps]string{
	OpStart:    "Start",
	OpStop:     "Stop",
	OpConstant: "Con",
	OpCast:     "Cast",
	OpIf:       "If",
	OpCProj:    "CProj",
	OpRegion:   "Region",
	OpLoop:     "Loop",
	OpReturn:   "Return",
	OpPhi:      "Phi",
	OpProj:     "Proj",
	OpFun:      "Fun",
	OpParm:     "Parm",
	OpCall:     "Call",
	OpCallEnd:  "CallEnd",
	OpAdd:      "Add",
	OpSub:      "Sub",
	OpMul:      "Mul",
	OpDiv:      "Div",
	OpMinus:    "Minus",
	OpAnd:      "And",
	OpOr:       "Or",
	OpXor:      "Xor",
	OpShl:      "Shl",
	OpShr:      "Shr",
	OpSar:      "Sar",
	OpEQ:       "EQ",
	OpLT:       "LT",
	OpLE:       "LE",
	OpEQF:      "EQF",
	OpLTF:      "LTF",
	OpLEF:      "LEF",
	OpNot:      "Not",
	OpAddF:     "AddF",
	OpSubF:     "SubF",
	OpMulF:     "MulF",
	OpDivF:     "DivF",
	OpMinusF:   "MinusF",
	OpToFloat:  "ToFloat",
}

func (o Op) String() string {
	if o < numOps {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// ParseOp looks up an op by its String name.
func ParseOp(s string) (Op, bool) {
	for i, name := range opNames {
		if name == s {
			return Op(i), true
		}
	}
	return 0, false
}

// Ops returns every op in declaration order.
func Ops() []Op {
	out := make([]Op, numOps)
	for i := range out {
		out[i] = Op(i)
	}
	return out
}

// isCFG reports whether nodes of this op produce or consume control only.
func (o Op) isCFG() bool {
	switch o {
	case OpStart, OpStop, OpIf, OpCProj, OpRegion, OpLoop, OpReturn, OpFun, OpCall, OpCallEnd:
		return true
	}
	return false
}

// isMultiHead: the op starts a basic block with several merging predecessors.
func (o Op) isMultiHead() bool {
	switch o {
	case OpStart, OpRegion, OpLoop, OpFun:
		return true
	}
	return false
}

// isMultiTail: the op produces a tuple consumed through projections.
func (o Op) isMultiTail() bool {
	switch o {
	case OpStart, OpIf, OpCallEnd:
		return true
	}
	return false
}

// isRegion covers every op whose inputs are merged control paths.
func (o Op) isRegion() bool { return o == OpRegion || o == OpLoop || o == OpFun }

// isPhi covers every op that merges one value per region path.
func (o Op) isPhi() bool { return o == OpPhi || o == OpParm }

// variadic ops delete inputs by swapping the last one into the hole.
func (o Op) variadic() bool {
	switch o {
	case OpRegion, OpLoop, OpFun, OpPhi, OpParm, OpStop, OpCallEnd:
		return true
	}
	return false
}

// hashed ops take part in value numbering.
func (o Op) hashed() bool {
	switch o {
	case OpStart, OpStop, OpFun, OpReturn, OpCall, OpCallEnd, OpLoop:
		return false
	}
	return true
}

func (o Op) isIntBinary() bool { return o >= OpAdd && o <= OpSar && o != OpMinus }

func (o Op) isCompare() bool { return o >= OpEQ && o <= OpLEF }

func (o Op) isFloatBinary() bool { return o >= OpAddF && o <= OpDivF }

// isBinary covers ops with a nil control slot and exactly two operands.
func (o Op) isBinary() bool { return o.isIntBinary() || o.isCompare() || o.isFloatBinary() }

func (o Op) commutative() bool {
	switch o {
	case OpAdd, OpMul, OpAnd, OpOr, OpXor, OpEQ, OpAddF, OpMulF, OpEQF:
		return true
	}
	return false
}
