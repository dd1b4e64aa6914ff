package pythonsolve

import (
	"sort"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
)

// Store collects constraints and derivations per unknown during simulation.
// Once sealed it is read-only; recording into a sealed store is a bug.
type Store struct {
	constraints map[int][]Constraint
	seen        map[int]map[string]bool
	derivations map[int]Derivation
	sealed      bool
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{
		constraints: make(map[int][]Constraint),
		seen:        make(map[int]map[string]bool),
		derivations: make(map[int]Derivation),
	}
}

// Record adds c to the constraints of u; duplicates are ignored.
// It returns true if the constraint is new.
func (s *Store) Record(u pythonvalue.Unknown, c Constraint) bool {
	if s.sealed {
		panic("pythonsolve: recording into a sealed store")
	}
	keys := s.seen[u.ID]
	if keys == nil {
		keys = make(map[string]bool)
		s.seen[u.ID] = keys
	}
	if keys[c.Key()] {
		return false
	}
	keys[c.Key()] = true
	s.constraints[u.ID] = append(s.constraints[u.ID], c)
	return true
}

// Derive records that u was produced from another unknown. The first
// derivation recorded for u wins.
func (s *Store) Derive(u pythonvalue.Unknown, d Derivation) {
	if s.sealed {
		panic("pythonsolve: recording into a sealed store")
	}
	if _, ok := s.derivations[u.ID]; !ok {
		s.derivations[u.ID] = d
	}
}

// Seal makes the store read-only
func (s *Store) Seal() {
	s.sealed = true
}

// Sealed reports whether Seal has been called
func (s *Store) Sealed() bool {
	return s.sealed
}

// Constraints returns the constraints on u in the order they were recorded
func (s *Store) Constraints(u pythonvalue.Unknown) []Constraint {
	return s.constraints[u.ID]
}

// Derivation returns how u was derived, if it was
func (s *Store) Derivation(u pythonvalue.Unknown) (Derivation, bool) {
	d, ok := s.derivations[u.ID]
	return d, ok
}

// Unknowns returns every unknown with a constraint or a derivation, in ID order
func (s *Store) Unknowns() []pythonvalue.Unknown {
	ids := make(map[int]bool)
	for id := range s.constraints {
		ids[id] = true
	}
	for id := range s.derivations {
		ids[id] = true
	}
	var out []pythonvalue.Unknown
	for id := range ids {
		out = append(out, pythonvalue.Unknown{ID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
