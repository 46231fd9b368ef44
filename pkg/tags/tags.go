// Package tags derives the cache tags that partition rendered responses
// into invalidation groups. The derivation is pure; the association between
// a tag and a stored response lives in the origin platform's revalidation
// primitive, or degrades to a full edge purge when that is unavailable.
package tags

import "fmt"

// Tag is a logical invalidation group identifier.
type Tag string

// AllLists is the cross-cutting tag for settings changes (currency rates,
// contact info) that affect every rendered page.
const AllLists Tag = "all-lists"

// Entity returns the tag covering a single document's rendered pages.
func Entity(documentID string) Tag {
	return Tag(fmt.Sprintf("entity-%s", documentID))
}

// Collection returns the tag covering all pages derived from a collection.
func Collection(name string) Tag {
	return Tag(fmt.Sprintf("collection-%s", name))
}

// CollectionList returns the tag covering a collection's listing pages.
func CollectionList(name string) Tag {
	return Tag(fmt.Sprintf("collection-%s-list", name))
}

// ForDocument returns the tags attached to a single-entity page render.
func ForDocument(collection, documentID string) []Tag {
	return []Tag{Entity(documentID), Collection(collection)}
}

// ForListing returns the tags attached to a listing page render.
func ForListing(collection string) []Tag {
	return []Tag{CollectionList(collection), AllLists}
}

// ForMutation returns every tag a mutation of the given document must
// expire: the entity's own pages, the collection, and its listings. With an
// empty document id (collection-wide change) the entity tag is omitted.
func ForMutation(collection, documentID string) []Tag {
	out := make([]Tag, 0, 3)
	if documentID != "" {
		out = append(out, Entity(documentID))
	}
	out = append(out, Collection(collection), CollectionList(collection))
	return out
}

// Strings converts a tag list for wire payloads and logging.
func Strings(ts []Tag) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}
