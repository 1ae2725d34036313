package resultset

import (
	"fmt"
	"strings"
)

// Set is an ordered collection of named tables.
type Set struct {
	tables []*Table
}

// NewSet creates a set holding the given tables.
func NewSet(tables ...*Table) *Set {
	s := &Set{}
	for _, t := range tables {
		s.MergeTable(t)
	}
	return s
}

// Tables returns the tables in insertion order.
func (s *Set) Tables() []*Table {
	return s.tables
}

// Len returns the number of tables.
func (s *Set) Len() int {
	return len(s.tables)
}

// Table finds a table by name, exact match first, then ignoring case.
func (s *Set) Table(name string) (*Table, bool) {
	for _, t := range s.tables {
		if t.Name == name {
			return t, true
		}
	}
	for _, t := range s.tables {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return nil, false
}

// First returns the first table, or nil for an empty set.
func (s *Set) First() *Table {
	if len(s.tables) == 0 {
		return nil
	}
	return s.tables[0]
}

// MustTable returns the named table or an error naming what is present.
func (s *Set) MustTable(name string) (*Table, error) {
	if t, ok := s.Table(name); ok {
		return t, nil
	}
	names := make([]string, len(s.tables))
	for i, t := range s.tables {
		names[i] = t.Name
	}
	return nil, fmt.Errorf("result set has no table %q (tables: %s)", name, strings.Join(names, ", "))
}

// MergeTable appends t's rows to the table of the same name, or adds t.
func (s *Set) MergeTable(t *Table) {
	if t == nil {
		return
	}
	if existing, ok := s.Table(t.Name); ok {
		existing.Append(t)
		return
	}
	s.tables = append(s.tables, t)
}

// Merge merges every table of other into s.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for _, t := range other.tables {
		s.MergeTable(t)
	}
}
