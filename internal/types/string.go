package types

// String renders t in the compact notation used by graph dumps and golden
// files. Pointers print only their target's name, so cyclic types terminate.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.kind {
	case KindBottom:
		return "Bot"
	case KindTop:
		return "Top"
	case KindCtrl:
		return "Ctrl"
	case KindXCtrl:
		return "~Ctrl"
	case KindInt:
		return intString(t)
	case KindFlt:
		return fltString(t)
	case KindTuple:
		return tupleString(t)
	case KindStruct:
		return structString(t)
	case KindMemPtr:
		return ptrString(t)
	case KindFunPtr:
		return funString(t)
	case KindMem:
		return memString(t)
	case KindRPC:
		return rpcString(t)
	}
	return t.kind.String()
}
