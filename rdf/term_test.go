package rdf

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactodia/reactodia-workspace-sub004/vocabulary"
)

func sampleTerms() []Term {
	return []Term{
		NamedNode("http://example.com/a"),
		NamedNode("http://example.com/b"),
		BlankNode("b0"),
		BlankNode("http://example.com/a"),
		Variable("x"),
		DefaultGraph{},
		NewLiteral("Person"),
		NewLangLiteral("Person", "en"),
		NewLangLiteral("Personne", "fr"),
		NewTypedLiteral("5", vocabulary.XsdInteger),
		NewTypedLiteral("Person", vocabulary.XsdInteger),
		NewQuad(NamedNode("s"), NamedNode("p"), NewLiteral("o"), nil),
		NewQuad(NamedNode("s"), NamedNode("p"), NewLiteral("o"), NamedNode("g")),
	}
}

func TestEqualTermsImpliesEqualHash(t *testing.T) {
	terms := sampleTerms()
	for _, a := range terms {
		for _, b := range terms {
			if EqualTerms(a, b) {
				assert.Equal(t, HashTerm(a), HashTerm(b), "%v vs %v", a, b)
			}
		}
	}
}

func TestEqualTerms_IndependentInstances(t *testing.T) {
	tests := []struct {
		name string
		a, b Term
		want bool
	}{
		{"same iri", NamedNode("http://x"), NamedNode("http://x"), true},
		{"iri vs blank with same value", NamedNode("x"), BlankNode("x"), false},
		{"implicit xsd:string", Literal{Value: "x"}, NewLiteral("x"), true},
		{"implicit langString", Literal{Value: "x", Language: "en"}, NewLangLiteral("x", "EN"), true},
		{"language differs", NewLangLiteral("x", "en"), NewLangLiteral("x", "fr"), false},
		{"language vs none", NewLangLiteral("x", "en"), NewLiteral("x"), false},
		{"datatype differs", NewTypedLiteral("1", vocabulary.XsdInteger), NewTypedLiteral("1", vocabulary.XsdDouble), false},
		{"nil graph equals default graph",
			Quad{Subject: NamedNode("s"), Predicate: NamedNode("p"), Object: NamedNode("o")},
			NewQuad(NamedNode("s"), NamedNode("p"), NamedNode("o"), DefaultGraph{}), true},
		{"quad object differs",
			NewQuad(NamedNode("s"), NamedNode("p"), NewLiteral("1"), nil),
			NewQuad(NamedNode("s"), NamedNode("p"), NewLiteral("2"), nil), false},
		{"both nil", nil, nil, true},
		{"one nil", NamedNode("x"), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EqualTerms(tt.a, tt.b))
			if tt.want {
				assert.Equal(t, HashTerm(tt.a), HashTerm(tt.b))
			}
		})
	}
}

func TestHashString_FNV1a(t *testing.T) {
	// Reference values of 32-bit FNV-1a.
	assert.Equal(t, uint32(0x811c9dc5), HashString(""))
	assert.Equal(t, uint32(0xe40c292c), HashString("a"))
	assert.Equal(t, uint32(0xbf9cf968), HashString("foobar"))
}

func TestDropHighestNonSignBit(t *testing.T) {
	assert.Equal(t, uint32(0x40000000), DropHighestNonSignBit(0x80000000))
	assert.Equal(t, uint32(0x3FFFFFFF), DropHighestNonSignBit(0x7FFFFFFF))
	assert.Equal(t, uint32(0x7FFFFFFF), DropHighestNonSignBit(0xFFFFFFFF))

	for _, term := range sampleTerms() {
		assert.Zero(t, HashTerm(term)&0x80000000, "sign bit must be clear for %v", term)
	}
}

func TestPlainRoundTrip(t *testing.T) {
	for _, term := range sampleTerms() {
		t.Run(term.TermType().String()+" "+term.String(), func(t *testing.T) {
			data, err := json.Marshal(ToPlain(term))
			require.NoError(t, err)

			var plain PlainTerm
			require.NoError(t, json.Unmarshal(data, &plain))

			back, err := FromPlain(plain)
			require.NoError(t, err)
			assert.True(t, EqualTerms(term, back), "expected %v, got %v", term, back)
		})
	}
}

func TestPlainKeepsLanguageTag(t *testing.T) {
	for _, term := range []Literal{
		{Value: "Hello", Language: "EN"},
		{Value: "Hallo", Language: "de-CH", Datatype: vocabulary.RdfLangString},
		NewLangLiteral("Bonjour", "FR"),
	} {
		back, err := FromPlain(ToPlain(term))
		require.NoError(t, err)
		assert.True(t, EqualTerms(term, back), "expected %v, got %v", term, back)
		assert.Equal(t, HashTerm(term), HashTerm(back))
	}
}

func TestFromPlain_Errors(t *testing.T) {
	_, err := FromPlain(PlainTerm{TermType: "Triple"})
	assert.Error(t, err)

	_, err = FromPlain(PlainTerm{TermType: "Quad"})
	assert.Error(t, err)

	_, err = LiteralFromPlain(PlainTerm{TermType: "NamedNode", Value: "x"})
	assert.Error(t, err)
}

func TestLiteralJSON(t *testing.T) {
	labels := []Literal{NewLangLiteral("Person", "en"), NewTypedLiteral("5", vocabulary.XsdInteger)}

	data, err := json.Marshal(labels)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"language":"en"`)

	var back []Literal
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 2)
	for i := range labels {
		assert.True(t, EqualTerms(labels[i], back[i]))
	}
}

func TestTermStrings(t *testing.T) {
	assert.Equal(t, "<http://x>", NamedNode("http://x").String())
	assert.Equal(t, "_:b1", BlankNode("b1").String())
	assert.Equal(t, `"hi"@en`, NewLangLiteral("hi", "en").String())
	assert.Equal(t, `"hi"`, NewLiteral("hi").String())
	assert.Equal(t, `"1"^^<`+vocabulary.XsdInteger+`>`, NewTypedLiteral("1", vocabulary.XsdInteger).String())
	assert.Equal(t, `<s> <p> "o" .`, NewQuad(NamedNode("s"), NamedNode("p"), NewLiteral("o"), nil).String())
	assert.Equal(t, "http://x", TermValue(NamedNode("http://x")))
	assert.True(t, IsResource(BlankNode("x")))
	assert.False(t, IsResource(NewLiteral("x")))
}

func TestReadNQuads(t *testing.T) {
	input := strings.Join([]string{
		`<http://ex/alice> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://ex/Person> .`,
		`<http://ex/alice> <http://www.w3.org/2000/01/rdf-schema#label> "Alice"@en .`,
		`<http://ex/alice> <http://ex/age> "42"^^<http://www.w3.org/2001/XMLSchema#integer> <http://ex/g> .`,
		`_:b0 <http://ex/knows> <http://ex/alice> .`,
		``,
	}, "\n")

	var quads []Quad
	err := ReadNQuads(strings.NewReader(input), func(q Quad) error {
		quads = append(quads, q)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, quads, 4)

	assert.Equal(t, NamedNode("http://ex/Person"), quads[0].Object)
	assert.True(t, EqualTerms(NewLangLiteral("Alice", "en"), quads[1].Object))
	assert.True(t, EqualTerms(NewTypedLiteral("42", vocabulary.XsdInteger), quads[2].Object))
	assert.Equal(t, NamedNode("http://ex/g"), quads[2].Graph)
	assert.Equal(t, BlankNode("b0"), quads[3].Subject)
	assert.Equal(t, DefaultGraph{}, quads[3].Graph)
}
