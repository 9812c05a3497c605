package vocabulary

// Standard vocabulary IRIs used by the data providers.
//
// References:
// - RDF 1.1: https://www.w3.org/TR/rdf11-concepts/
// - RDFS: https://www.w3.org/TR/rdf-schema/
// - XSD: https://www.w3.org/TR/xmlschema11-2/
// - OWL: https://www.w3.org/TR/owl2-overview/
// - SKOS: https://www.w3.org/TR/skos-reference/
// - Schema.org: https://schema.org/

// Namespaces
const (
	RdfNamespace    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RdfsNamespace   = "http://www.w3.org/2000/01/rdf-schema#"
	XsdNamespace    = "http://www.w3.org/2001/XMLSchema#"
	OwlNamespace    = "http://www.w3.org/2002/07/owl#"
	SkosNamespace   = "http://www.w3.org/2004/02/skos/core#"
	SchemaNamespace = "http://schema.org/"
)

// RDF Standard IRIs
const (
	// RdfType relates a resource to its element types.
	RdfType = RdfNamespace + "type"

	// RdfLangString is the datatype of every language-tagged literal.
	RdfLangString = RdfNamespace + "langString"
)

// RDF Schema Standard IRIs
const (
	// RdfsLabel provides a human-readable name for a resource.
	RdfsLabel = RdfsNamespace + "label"

	// RdfsComment provides a human-readable description
	RdfsComment = RdfsNamespace + "comment"

	// RdfsSubClassOf relates a derived element type to its base type.
	RdfsSubClassOf = RdfsNamespace + "subClassOf"

	RdfsClass = RdfsNamespace + "Class"
)

// XML Schema datatypes
const (
	XsdString  = XsdNamespace + "string"
	XsdInteger = XsdNamespace + "integer"
	XsdBoolean = XsdNamespace + "boolean"
	XsdDouble  = XsdNamespace + "double"
	XsdDate    = XsdNamespace + "date"
)

// OWL Standard IRIs
const (
	OwlClass          = OwlNamespace + "Class"
	OwlObjectProperty = OwlNamespace + "ObjectProperty"
	OwlSameAs         = OwlNamespace + "sameAs"
)

// SKOS Standard IRIs
const (
	// SkosPrefLabel provides the preferred lexical label for a resource.
	SkosPrefLabel = SkosNamespace + "prefLabel"

	// SkosAltLabel provides an alternative lexical label for a resource.
	SkosAltLabel = SkosNamespace + "altLabel"
)

// Schema.org Standard IRIs
const (
	// SchemaName provides the name of the item.
	SchemaName = SchemaNamespace + "name"

	// SchemaThumbnailURL is the default predicate for element images.
	SchemaThumbnailURL = SchemaNamespace + "thumbnailUrl"
)
