package model

// SectionType separates the special ED/CH sections from regular ones
type SectionType string

const (
	SectionSpecial SectionType = "special"
	SectionRegular SectionType = "regular"
)

// Section groups questions for navigation
type Section struct {
	Name      string      `json:"name"`
	Type      SectionType `json:"type"`
	Questions []Question  `json:"questions"`
}
