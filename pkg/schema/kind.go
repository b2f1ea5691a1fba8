package schema

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:generate go run github.com/dmarkham/enumer -type Kind -trimprefix Kind -transform lower -json -output kind.gen.go

// Kind is the type of a collection. The numeric values are part of the
// configuration format: 0 for documents, 1 for edges.
type Kind int

const (
	KindDocument Kind = iota
	KindEdge
)

// UnmarshalYAML accepts either a kind name ("document", "edge") or its
// numeric code. Unknown numeric codes are kept as-is so that the
// provisioner can report them; unknown names are rejected.
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("collection kind must be a scalar, got %v", value.Tag)
	}

	if n, err := strconv.Atoi(value.Value); err == nil {
		*k = Kind(n)
		return nil
	}

	parsed, err := KindString(value.Value)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalYAML writes known kinds by name and unknown ones by number.
func (k Kind) MarshalYAML() (interface{}, error) {
	if !k.IsAKind() {
		return int(k), nil
	}
	return k.String(), nil
}
