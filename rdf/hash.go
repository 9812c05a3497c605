package rdf

const (
	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

// HashString returns the 32-bit FNV-1a hash of s.
func HashString(s string) uint32 {
	h := fnvOffset32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return h
}

// ChainHash folds next into an accumulated hash positionally.
func ChainHash(acc, next uint32) uint32 {
	return acc*31 + next
}

// DropHighestNonSignBit moves the sign bit into bit 30 and clears the sign
// bit, so the result fits a small non-negative integer on runtimes that have
// no native 32-bit overflow.
func DropHighestNonSignBit(h uint32) uint32 {
	return ((h >> 1) & 0x40000000) | (h & 0x3FFFFFFF)
}

// HashTerm returns a structural hash of t. Terms equal under EqualTerms hash
// identically; a nil term hashes to 0.
func HashTerm(t Term) uint32 {
	if t == nil {
		return 0
	}
	return DropHighestNonSignBit(hashTerm(t))
}

func hashTerm(t Term) uint32 {
	h := uint32(t.TermType())
	switch v := t.(type) {
	case NamedNode:
		h = ChainHash(h, HashString(string(v)))
	case BlankNode:
		h = ChainHash(h, HashString(string(v)))
	case Variable:
		h = ChainHash(h, HashString(string(v)))
	case Literal:
		h = ChainHash(h, HashString(v.Value))
		h = ChainHash(h, HashString(string(v.EffectiveDatatype())))
		h = ChainHash(h, HashString(v.Language))
	case DefaultGraph:
	case Quad:
		h = ChainHash(h, HashTerm(v.Subject))
		h = ChainHash(h, HashTerm(v.Predicate))
		h = ChainHash(h, HashTerm(v.Object))
		h = ChainHash(h, HashTerm(v.graph()))
	}
	return h
}

// EqualTerms compares two terms structurally: tag first, then payload.
// Literals are equal when value, effective datatype and language all match.
func EqualTerms(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.TermType() != b.TermType() {
		return false
	}
	switch av := a.(type) {
	case NamedNode:
		return av == b.(NamedNode)
	case BlankNode:
		return av == b.(BlankNode)
	case Variable:
		return av == b.(Variable)
	case DefaultGraph:
		return true
	case Literal:
		bv := b.(Literal)
		return av.Value == bv.Value &&
			av.Language == bv.Language &&
			av.EffectiveDatatype() == bv.EffectiveDatatype()
	case Quad:
		bv := b.(Quad)
		return EqualTerms(av.Subject, bv.Subject) &&
			EqualTerms(av.Predicate, bv.Predicate) &&
			EqualTerms(av.Object, bv.Object) &&
			EqualTerms(av.graph(), bv.graph())
	default:
		return false
	}
}

// TermHasher adapts HashTerm and EqualTerms to the hashmap.Hasher interface.
type TermHasher struct{}

func (TermHasher) Hash(t Term) uint32   { return HashTerm(t) }
func (TermHasher) Equal(a, b Term) bool { return EqualTerms(a, b) }

// LiteralHasher hashes literals without boxing them into Term.
type LiteralHasher struct{}

func (LiteralHasher) Hash(l Literal) uint32   { return HashTerm(l) }
func (LiteralHasher) Equal(a, b Literal) bool { return EqualTerms(a, b) }

// QuadHasher hashes quads without boxing them into Term.
type QuadHasher struct{}

func (QuadHasher) Hash(q Quad) uint32   { return HashTerm(q) }
func (QuadHasher) Equal(a, b Quad) bool { return EqualTerms(a, b) }
