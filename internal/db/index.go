package db

import (
	"fmt"
	"strconv"
	"strings"
)

// StorageHash is the only storage the chunk index uses: the ingestion job writes hashes.
const StorageHash = "HASH"

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

// Distance metrics.
const (
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm selects the vector indexing algorithm.
type VectorAlgorithm string

// Vector algorithms.
const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// FieldKind enumerates schema field kinds.
type FieldKind int

const (
	// FieldTag is an exact-match field. Every scoping attribute is a tag.
	FieldTag FieldKind = iota
	// FieldVector holds the chunk embedding.
	FieldVector
)

// VectorSpec configures a vector field.
type VectorSpec struct {
	Algorithm   VectorAlgorithm
	Dim         int
	Distance    DistanceMetric
	M           int // HNSW only, 0 keeps the server default
	EFConstruct int // HNSW only, 0 keeps the server default
}

// IndexField is one schema entry.
type IndexField struct {
	Name   string
	Kind   FieldKind
	Vector *VectorSpec
}

// IndexDefinition is an FT index over hash keys.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// VectorField returns the single vector field, or nil.
func (idx *IndexDefinition) VectorField() *IndexField {
	for i := range idx.Fields {
		if idx.Fields[i].Kind == FieldVector {
			return &idx.Fields[i]
		}
	}
	return nil
}

// TagNames lists the tag fields in schema order.
func (idx *IndexDefinition) TagNames() []string {
	var names []string
	for _, f := range idx.Fields {
		if f.Kind == FieldTag {
			names = append(names, f.Name)
		}
	}
	return names
}

// Validate checks the definition: a valid name, unique fields, exactly one vector field.
func (idx *IndexDefinition) Validate() error {
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("%w: bad index name %q", ErrInvalidIndex, idx.Name)
	}
	if len(idx.Fields) == 0 {
		return fmt.Errorf("%w: no fields", ErrInvalidIndex)
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	vectors := 0
	for i, f := range idx.Fields {
		if !IsValidIdentifier(f.Name) {
			return fmt.Errorf("%w: bad field name %q at %d", ErrInvalidIndex, f.Name, i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidIndex, f.Name)
		}
		seen[f.Name] = struct{}{}

		switch f.Kind {
		case FieldTag:
		case FieldVector:
			vectors++
			if err := f.Vector.validate(); err != nil {
				return fmt.Errorf("%w: field %q: %w", ErrInvalidIndex, f.Name, err)
			}
		default:
			return fmt.Errorf("%w: field %q has unknown kind %d", ErrInvalidIndex, f.Name, f.Kind)
		}
	}
	if vectors != 1 {
		return fmt.Errorf("%w: want exactly one vector field, got %d", ErrInvalidIndex, vectors)
	}
	return nil
}

func (v *VectorSpec) validate() error {
	if v == nil {
		return fmt.Errorf("missing vector spec")
	}
	if v.Dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", v.Dim)
	}
	switch v.Algorithm {
	case VectorHNSW, VectorFlat:
	default:
		return fmt.Errorf("unknown algorithm %q", v.Algorithm)
	}
	switch v.Distance {
	case DistanceCosine, DistanceL2, DistanceIP:
	default:
		return fmt.Errorf("unknown distance %q", v.Distance)
	}
	return nil
}

// CreateArgs renders the FT.CREATE arguments that follow the command name.
// The definition must be valid.
func (idx *IndexDefinition) CreateArgs() []string {
	args := []string{idx.Name, "ON", StorageHash}
	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	args = append(args, "SCHEMA")

	for _, f := range idx.Fields {
		switch f.Kind {
		case FieldTag:
			args = append(args, f.Name, "TAG")
		case FieldVector:
			v := f.Vector
			attrs := []string{
				"TYPE", "FLOAT32",
				"DIM", strconv.Itoa(v.Dim),
				"DISTANCE_METRIC", string(v.Distance),
			}
			if v.Algorithm == VectorHNSW {
				if v.M > 0 {
					attrs = append(attrs, "M", strconv.Itoa(v.M))
				}
				if v.EFConstruct > 0 {
					attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(v.EFConstruct))
				}
			}
			args = append(args, f.Name, "VECTOR", string(v.Algorithm), strconv.Itoa(len(attrs)))
			args = append(args, attrs...)
		}
	}
	return args
}

// String renders the full command for logs.
func (idx *IndexDefinition) String() string {
	return "FT.CREATE " + strings.Join(idx.CreateArgs(), " ")
}

// IsValidIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}
