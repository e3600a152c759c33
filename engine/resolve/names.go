package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/taleweaver/engine/state"
	"github.com/nathoo/taleweaver/types"
)

// Match is an entity a player-typed name resolved to.
type Match struct {
	Kind types.EntityKind
	ID   string
}

// AmbiguityError indicates multiple entities matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("which %s? (%s)", e.Name, names)
}

// NotFoundError indicates no entity matched a name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("you don't see %q here", e.Name)
}

// ResolveName maps a player-typed name to an object or character that is in
// the current room or, for objects, carried by the player. kind narrows the
// search; an empty kind searches both.
func ResolveName(s *types.State, name string, kind types.EntityKind) (Match, error) {
	nameLower := strings.ToLower(strings.TrimSpace(name))
	var matches []Match

	for _, k := range []types.EntityKind{types.KindObject, types.KindCharacter} {
		if kind != "" && kind != k {
			continue
		}
		coll := state.Collection(s, k)
		ids := make([]string, 0, len(coll))
		for id := range coll {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			e := coll[id]
			if !visible(s, k, e) {
				continue
			}
			if matchesName(e, nameLower) {
				matches = append(matches, Match{Kind: k, ID: id})
			}
		}
	}

	// An exact id wins over partial name matches.
	for _, m := range matches {
		if strings.EqualFold(m.ID, nameLower) {
			return m, nil
		}
	}

	switch len(matches) {
	case 0:
		return Match{}, &NotFoundError{Name: name}
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return Match{}, &AmbiguityError{Name: name, Candidates: ids}
	}
}

// visible is true for entities located in the current room and for objects
// the player carries.
func visible(s *types.State, kind types.EntityKind, e *types.Entity) bool {
	if loc, ok := e.Fields["Location"].(string); ok && loc == s.CurrentRoom {
		return true
	}
	return kind == types.KindObject && state.HasItem(s, e.ID)
}

// matchesName supports exact name match, word-based partial match and
// entity id match with underscore normalization.
func matchesName(e *types.Entity, nameLower string) bool {
	entityName := strings.ToLower(e.Name)
	if entityName != "" {
		if entityName == nameLower {
			return true
		}
		// "key" matches "rusty key", "guard" matches "castle guard".
		for _, word := range strings.Fields(entityName) {
			if word == nameLower {
				return true
			}
		}
	}
	idLower := strings.ToLower(e.ID)
	if idLower == nameLower {
		return true
	}
	return strings.ReplaceAll(nameLower, " ", "_") == idLower
}
