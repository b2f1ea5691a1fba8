package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Collection names used by the Discuits models.
const (
	CollectionAlbum     = "album"
	CollectionArtist    = "artist"
	CollectionArtistTo  = "artist_to"
	CollectionInventory = "inventory"
	CollectionVariant   = "variant"
)

// Collection is a named collection together with its kind
type Collection struct {
	Name string
	Kind Kind
}

// Table is an ordered set of collections. Order is the order in which the
// provisioner visits the entries.
type Table []Collection

// DefaultTable returns the collections required by the Discuits models.
func DefaultTable() Table {
	return Table{
		{Name: CollectionAlbum, Kind: KindDocument},
		{Name: CollectionArtist, Kind: KindDocument},
		{Name: CollectionArtistTo, Kind: KindEdge},
		{Name: CollectionInventory, Kind: KindDocument},
		{Name: CollectionVariant, Kind: KindDocument},
	}
}

// Names returns the collection names in table order
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for _, c := range t {
		names = append(names, c.Name)
	}
	return names
}

// Lookup returns the kind configured for name
func (t Table) Lookup(name string) (Kind, bool) {
	for _, c := range t {
		if c.Name == name {
			return c.Kind, true
		}
	}
	return 0, false
}

// Validate checks that every entry has a name and that no name is
// configured twice. Unknown kinds are not rejected here.
func (t Table) Validate() error {
	seen := make(map[string]struct{}, len(t))
	for i, c := range t {
		if c.Name == "" {
			return fmt.Errorf("collection %d has an empty name", i)
		}
		if _, ok := seen[c.Name]; ok {
			return fmt.Errorf("collection %q is configured more than once", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// UnmarshalYAML decodes a mapping of collection name to kind, keeping the
// order of the document.
//
//	collections:
//	  album: document
//	  artist_to: edge
func (t *Table) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("collections must be a mapping of name to kind (line %d)", value.Line)
	}

	table := make(Table, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, kindNode := value.Content[i], value.Content[i+1]

		var kind Kind
		if err := kindNode.Decode(&kind); err != nil {
			return fmt.Errorf("collection %q: %w", keyNode.Value, err)
		}
		table = append(table, Collection{Name: keyNode.Value, Kind: kind})
	}

	*t = table
	return nil
}

// MarshalYAML encodes the table as an ordered mapping
func (t Table) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range t {
		kind, err := c.Kind.MarshalYAML()
		if err != nil {
			return nil, err
		}
		var kindNode yaml.Node
		if err := kindNode.Encode(kind); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: c.Name},
			&kindNode,
		)
	}
	return node, nil
}
