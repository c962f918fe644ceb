package storage

import "fmt"

// StaticStore serves a fixed set of records from memory. It backs the
// built-in catalogs when no asset directory is configured.
type StaticStore[T ValidatingSpec] struct {
	records map[string]T
}

func NewStaticStore[T ValidatingSpec](records map[string]T) (*StaticStore[T], error) {
	for id, r := range records {
		if !identifierPattern.MatchString(id) {
			return nil, fmt.Errorf("invalid id %q", id)
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", id, err)
		}
	}

	return &StaticStore[T]{records: records}, nil
}

func (s *StaticStore[T]) Save(id string, o T) error {
	return fmt.Errorf("static store is read-only")
}

func (s *StaticStore[T]) Get(id string) T {
	val, ok := s.records[id]
	if !ok {
		var nilVal T
		return nilVal
	}
	return val
}

func (s *StaticStore[T]) GetAll() map[string]T {
	vals := map[string]T{}
	for id, v := range s.records {
		vals[id] = v
	}
	return vals
}
