// Package gallery holds the identity model shared by the store, the matcher
// and the enrollment service.
package gallery

import (
	"slices"
	"strings"
)

// Identity is a named face descriptor together with the stored image it came from.
type Identity struct {
	Name       string    `json:"name"`
	Descriptor []float32 `json:"-"`
	ImageRef   string    `json:"image_ref"`
}

// Gallery is an ordered list of identities with unique names.
// A Gallery is treated as immutable: With returns a modified copy.
type Gallery struct {
	identities []Identity
}

// New builds a gallery from identities in order. A later identity with an
// already seen name replaces the earlier one in place.
func New(identities ...Identity) Gallery {
	var g Gallery
	for _, id := range identities {
		g = g.With(id)
	}
	return g
}

// With returns a copy of the gallery where identity replaces the entry with the
// same name, or is appended when the name is new.
func (g Gallery) With(identity Identity) Gallery {
	identity.Descriptor = slices.Clone(identity.Descriptor)
	out := make([]Identity, len(g.identities), len(g.identities)+1)
	copy(out, g.identities)

	if i := g.index(identity.Name); i >= 0 {
		out[i] = identity
	} else {
		out = append(out, identity)
	}
	return Gallery{identities: out}
}

// Without returns a copy of the gallery with the named identity removed.
func (g Gallery) Without(name string) Gallery {
	i := g.index(name)
	if i < 0 {
		return g
	}
	return Gallery{identities: slices.Delete(slices.Clone(g.identities), i, i+1)}
}

// Find returns the identity with the exact name.
func (g Gallery) Find(name string) (Identity, bool) {
	if i := g.index(name); i >= 0 {
		return g.identities[i], true
	}
	return Identity{}, false
}

// Search returns identities whose normalized name contains the normalized query.
func (g Gallery) Search(query string) []Identity {
	q := searchKey(query)
	var out []Identity
	for _, id := range g.identities {
		if strings.Contains(searchKey(id.Name), q) {
			out = append(out, id)
		}
	}
	return out
}

// Identities returns the identities in gallery order.
func (g Gallery) Identities() []Identity {
	return slices.Clone(g.identities)
}

// Names returns identity names in gallery order.
func (g Gallery) Names() []string {
	names := make([]string, len(g.identities))
	for i, id := range g.identities {
		names[i] = id.Name
	}
	return names
}

// Len returns the number of identities.
func (g Gallery) Len() int {
	return len(g.identities)
}

func (g Gallery) index(name string) int {
	return slices.IndexFunc(g.identities, func(id Identity) bool { return id.Name == name })
}
