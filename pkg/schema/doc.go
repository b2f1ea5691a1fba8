// Package schema describes the collections the Discuits application expects
// to find in its database.
//
// A collection is either a document collection or an edge collection. The
// set of collections is held in an ordered Table so that provisioning visits
// them in a predictable order:
//
//	for _, c := range schema.DefaultTable() {
//	    fmt.Println(c.Name, c.Kind)
//	}
//
// Tables can be read from YAML as a mapping of collection name to kind:
//
//	collections:
//	  album: document
//	  artist: document
//	  artist_to: edge
//
// Kinds may also be written with their numeric code (0 for document, 1 for
// edge). Any other number decodes to a Kind for which IsAKind reports false.
package schema
