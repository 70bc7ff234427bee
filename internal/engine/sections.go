package engine

import (
	"cuestionarios/internal/model"
)

const defaultSectionName = "General"

// BuildSections groups the catalog into the unified section list. Special (ED/CH)
// sections come first, merged by name; regular sections follow, keyed by
// seccion_sis when set and nombre_seccion otherwise. Both keep catalog order.
func BuildSections(catalog *model.Catalog) []model.Section {
	var special, regular []model.Section
	specialIdx := make(map[string]int)
	regularIdx := make(map[string]int)

	for _, q := range catalog.Questions {
		if IsSpecialType(q.Tipo) {
			name := sectionName(q.NombreSeccion)
			special = appendToSection(special, specialIdx, name, model.SectionSpecial, q)
			continue
		}
		name := q.SeccionSIS
		if name == "" {
			name = q.NombreSeccion
		}
		regular = appendToSection(regular, regularIdx, sectionName(name), model.SectionRegular, q)
	}
	return append(special, regular...)
}

func sectionName(name string) string {
	if name == "" {
		return defaultSectionName
	}
	return name
}

func appendToSection(sections []model.Section, index map[string]int, name string, typ model.SectionType, q model.Question) []model.Section {
	if i, ok := index[name]; ok {
		sections[i].Questions = append(sections[i].Questions, q)
		return sections
	}
	index[name] = len(sections)
	return append(sections, model.Section{Name: name, Type: typ, Questions: []model.Question{q}})
}

// Navigator moves through sections. Moves past either end are no-ops and never
// touch answers.
type Navigator struct {
	sections []model.Section
	current  int
}

// NewNavigator starts at the first section
func NewNavigator(sections []model.Section) *Navigator {
	return &Navigator{sections: sections}
}

// Sections returns the unified section list
func (n *Navigator) Sections() []model.Section {
	return n.sections
}

// Len returns the number of sections
func (n *Navigator) Len() int {
	return len(n.sections)
}

// Index returns the current section index
func (n *Navigator) Index() int {
	return n.current
}

// Current returns the current section, false when there are none
func (n *Navigator) Current() (model.Section, bool) {
	if len(n.sections) == 0 {
		return model.Section{}, false
	}
	return n.sections[n.current], true
}

// Next advances one section and reports whether it moved
func (n *Navigator) Next() bool {
	return n.GoTo(n.current + 1)
}

// Prev goes back one section and reports whether it moved
func (n *Navigator) Prev() bool {
	return n.GoTo(n.current - 1)
}

// GoTo jumps to section i and reports whether the position changed
func (n *Navigator) GoTo(i int) bool {
	if i < 0 || i >= len(n.sections) || i == n.current {
		return false
	}
	n.current = i
	return true
}

// SectionOf returns the index of the section holding questionID, -1 when absent
func (n *Navigator) SectionOf(questionID int) int {
	for i, s := range n.sections {
		for _, q := range s.Questions {
			if q.ID == questionID {
				return i
			}
		}
	}
	return -1
}
