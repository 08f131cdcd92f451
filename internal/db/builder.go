package db

// IndexBuilder assembles an IndexDefinition.
//
//	def, err := db.NewIndex("playsearch:chunks").
//	    Prefix("playsearch:chunk:").
//	    Tags("company_id", "content_type").
//	    HNSW("vector", 3072, db.DistanceCosine, 16, 200).
//	    Build()
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts a definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix adds key prefixes.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Tags adds tag fields in order.
func (b *IndexBuilder) Tags(names ...string) *IndexBuilder {
	for _, n := range names {
		b.def.Fields = append(b.def.Fields, IndexField{Name: n, Kind: FieldTag})
	}
	return b
}

// HNSW adds an HNSW vector field.
func (b *IndexBuilder) HNSW(name string, dim int, distance DistanceMetric, m, efConstruct int) *IndexBuilder {
	return b.vector(name, VectorSpec{
		Algorithm: VectorHNSW, Dim: dim, Distance: distance, M: m, EFConstruct: efConstruct,
	})
}

// Flat adds a brute-force vector field.
func (b *IndexBuilder) Flat(name string, dim int, distance DistanceMetric) *IndexBuilder {
	return b.vector(name, VectorSpec{Algorithm: VectorFlat, Dim: dim, Distance: distance})
}

func (b *IndexBuilder) vector(name string, spec VectorSpec) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Kind: FieldVector, Vector: &spec})
	return b
}

// Build validates and returns the definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	return &def, nil
}
