package memory

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/pkg/hashmap"
	"github.com/reactodia/reactodia-workspace-sub004/rdf"
)

// predicateIndex groups the quads sharing one subject (or object) by predicate.
type predicateIndex map[rdf.NamedNode][]rdf.Quad

// Dataset is an in-memory quad collection with three indexes:
//
//	subject   -> predicate -> quads
//	object    -> predicate -> quads
//	predicate -> quads
//
// Identical quads are stored once. A Dataset is safe for concurrent use.
type Dataset struct {
	mu sync.RWMutex

	quads       *hashmap.Set[rdf.Quad]
	bySubject   *hashmap.Map[rdf.Term, predicateIndex]
	byObject    *hashmap.Map[rdf.Term, predicateIndex]
	byPredicate map[rdf.NamedNode][]rdf.Quad
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		quads:       hashmap.NewSet[rdf.Quad](rdf.QuadHasher{}),
		bySubject:   hashmap.NewMap[rdf.Term, predicateIndex](rdf.TermHasher{}),
		byObject:    hashmap.NewMap[rdf.Term, predicateIndex](rdf.TermHasher{}),
		byPredicate: make(map[rdf.NamedNode][]rdf.Quad),
	}
}

// Add inserts quads and returns how many were new. Quads whose predicate is
// not a named node, or whose subject is not a resource, are rejected.
func (d *Dataset) Add(quads ...rdf.Quad) (int, error) {
	for _, q := range quads {
		if err := validateQuad(q); err != nil {
			return 0, err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	added := 0
	for _, q := range quads {
		q = rdf.NewQuad(q.Subject, q.Predicate, q.Object, q.Graph)
		if !d.quads.Add(q) {
			continue
		}
		p := q.Predicate.(rdf.NamedNode)
		index(d.bySubject, q.Subject, p, q)
		index(d.byObject, q.Object, p, q)
		d.byPredicate[p] = append(d.byPredicate[p], q)
		added++
	}
	return added, nil
}

func index(m *hashmap.Map[rdf.Term, predicateIndex], key rdf.Term, p rdf.NamedNode, q rdf.Quad) {
	idx, ok := m.Get(key)
	if !ok {
		idx = make(predicateIndex)
		m.Set(key, idx)
	}
	idx[p] = append(idx[p], q)
}

func validateQuad(q rdf.Quad) error {
	if _, ok := q.Predicate.(rdf.NamedNode); !ok {
		return errors.WrapInvalid(errors.ErrInvalidData, "memory", "Dataset.Add",
			"predicate must be a named node: "+q.String())
	}
	if !isResource(q.Subject) {
		return errors.WrapInvalid(errors.ErrInvalidData, "memory", "Dataset.Add",
			"subject must be a named or blank node: "+q.String())
	}
	if q.Object == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "memory", "Dataset.Add",
			"object is missing: "+q.String())
	}
	return nil
}

func isResource(t rdf.Term) bool {
	switch t.(type) {
	case rdf.NamedNode, rdf.BlankNode:
		return true
	}
	return false
}

// Len returns the number of distinct quads.
func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.quads.Len()
}

// BySubject returns the quads with the given subject, restricted to predicate
// unless it is empty.
func (d *Dataset) BySubject(subject rdf.Term, predicate rdf.NamedNode) []rdf.Quad {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lookupIndex(d.bySubject, subject, predicate)
}

// ByObject returns the quads with the given object, restricted to predicate
// unless it is empty.
func (d *Dataset) ByObject(object rdf.Term, predicate rdf.NamedNode) []rdf.Quad {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lookupIndex(d.byObject, object, predicate)
}

func lookupIndex(m *hashmap.Map[rdf.Term, predicateIndex], key rdf.Term, predicate rdf.NamedNode) []rdf.Quad {
	idx, ok := m.Get(key)
	if !ok {
		return nil
	}
	if predicate != "" {
		return append([]rdf.Quad(nil), idx[predicate]...)
	}
	var out []rdf.Quad
	for _, quads := range idx {
		out = append(out, quads...)
	}
	return out
}

// ByPredicate returns every quad with the given predicate.
func (d *Dataset) ByPredicate(predicate rdf.NamedNode) []rdf.Quad {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]rdf.Quad(nil), d.byPredicate[predicate]...)
}

// HasSubject reports whether any quad has the given subject.
func (d *Dataset) HasSubject(subject rdf.Term) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bySubject.Has(subject)
}

// HasObject reports whether any quad has the given object.
func (d *Dataset) HasObject(object rdf.Term) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byObject.Has(object)
}

// HasPredicate reports whether any quad uses the given predicate.
func (d *Dataset) HasPredicate(predicate rdf.NamedNode) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byPredicate[predicate]) > 0
}

// Predicates returns every predicate in use.
func (d *Dataset) Predicates() []rdf.NamedNode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]rdf.NamedNode, 0, len(d.byPredicate))
	for p := range d.byPredicate {
		out = append(out, p)
	}
	return out
}

// Subjects returns every distinct subject.
func (d *Dataset) Subjects() []rdf.Term {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bySubject.Keys()
}

// Scan calls fn for every quad until fn returns false. It is a full scan.
func (d *Dataset) Scan(fn func(rdf.Quad) bool) {
	d.mu.RLock()
	quads := d.quads.Values()
	d.mu.RUnlock()
	for _, q := range quads {
		if !fn(q) {
			return
		}
	}
}

// Load parses N-Quads or N-Triples from r into the dataset and returns the
// number of new quads.
func (d *Dataset) Load(r io.Reader) (int, error) {
	const batchSize = 1024
	batch := make([]rdf.Quad, 0, batchSize)
	added := 0
	flush := func() error {
		n, err := d.Add(batch...)
		added += n
		batch = batch[:0]
		return err
	}

	err := rdf.ReadNQuads(r, func(q rdf.Quad) error {
		batch = append(batch, q)
		if len(batch) == batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return added, errors.WrapInvalid(err, "memory", "Dataset.Load", "parse n-quads")
	}
	if err := flush(); err != nil {
		return added, err
	}
	return added, nil
}

// LoadFile loads an N-Quads or N-Triples file. Files ending in ".gz" are
// decompressed.
func (d *Dataset) LoadFile(path string) (int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, errors.WrapInvalid(err, "memory", "Dataset.LoadFile", "open "+path)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return 0, errors.WrapInvalid(err, "memory", "Dataset.LoadFile", "open gzip "+path)
		}
		defer gz.Close()
		r = gz
	}
	return d.Load(r)
}
