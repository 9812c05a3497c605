package rdf

import (
	"errors"
	"fmt"
	"io"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
)

// ReadNQuads parses N-Quads (or N-Triples) from r and calls fn for every quad.
// Parsing stops at the first error returned by the reader or by fn.
func ReadNQuads(r io.Reader, fn func(Quad) error) error {
	reader := nquads.NewReader(r, true)
	for line := 1; ; line++ {
		q, err := reader.ReadQuad()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("rdf: n-quads statement %d: %w", line, err)
		}
		converted, err := FromCayleyQuad(q)
		if err != nil {
			return fmt.Errorf("rdf: n-quads statement %d: %w", line, err)
		}
		if err := fn(converted); err != nil {
			return err
		}
	}
}

// FromCayleyQuad converts a parsed cayley quad into a Quad.
func FromCayleyQuad(q quad.Quad) (Quad, error) {
	s, err := FromCayleyValue(q.Subject)
	if err != nil {
		return Quad{}, err
	}
	p, err := FromCayleyValue(q.Predicate)
	if err != nil {
		return Quad{}, err
	}
	o, err := FromCayleyValue(q.Object)
	if err != nil {
		return Quad{}, err
	}
	var g Term = DefaultGraph{}
	if q.Label != nil {
		if g, err = FromCayleyValue(q.Label); err != nil {
			return Quad{}, err
		}
	}
	return NewQuad(s, p, o, g), nil
}

// FromCayleyValue converts a raw cayley value into a Term.
func FromCayleyValue(v quad.Value) (Term, error) {
	switch t := v.(type) {
	case quad.IRI:
		return NamedNode(t.Full()), nil
	case quad.BNode:
		return BlankNode(t), nil
	case quad.String:
		return NewLiteral(string(t)), nil
	case quad.LangString:
		return NewLangLiteral(string(t.Value), t.Lang), nil
	case quad.TypedString:
		return NewTypedLiteral(string(t.Value), NamedNode(t.Type.Full())), nil
	case nil:
		return nil, fmt.Errorf("rdf: missing term")
	default:
		return nil, fmt.Errorf("rdf: unsupported value %T", v)
	}
}
