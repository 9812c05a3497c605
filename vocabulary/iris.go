// Package vocabulary provides the IRIs the graph-data layer relies on: W3C
// standard terms plus the layer's own reserved identifiers.
package vocabulary

// Reserved identifiers owned by this module.
const (
	// Namespace is the base of every identifier minted by this module.
	Namespace = "urn:reactodia:"

	// SourceProviderProperty is attached by the composite provider to every
	// element it returns. Its values are literals naming the sources that
	// contributed the element.
	SourceProviderProperty = Namespace + "sourceProvider"

	// BlankNodePrefix marks identifiers that encode a blank node, so they stay
	// plain strings across the provider boundary.
	BlankNodePrefix = "_:"
)

// DefaultLabelPredicates lists the predicates treated as labels, in priority
// order, when a provider is not configured otherwise.
func DefaultLabelPredicates() []string {
	return []string{RdfsLabel, SkosPrefLabel, SchemaName}
}
