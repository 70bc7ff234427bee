package model

import "time"

// Questionnaire is a catalog of questions served by GET /api/cuestionarios/{id}/
type Questionnaire struct {
	ID          int        `json:"id" bson:"_id" yaml:"id"`
	Nombre      string     `json:"nombre" bson:"nombre" yaml:"nombre"`
	Descripcion string     `json:"descripcion,omitempty" bson:"descripcion,omitempty" yaml:"descripcion,omitempty"`
	Preguntas   []Question `json:"preguntas" bson:"preguntas" yaml:"preguntas"`
	CreatedAt   time.Time  `json:"createdAt,omitempty" bson:"createdAt" yaml:"-"`
	UpdatedAt   time.Time  `json:"updatedAt,omitempty" bson:"updatedAt" yaml:"-"`
}

// Catalog indexes a questionnaire's questions while keeping catalog order
type Catalog struct {
	Questions []Question
	index     map[int]int
}

// NewCatalog builds a catalog from questions in catalog order
func NewCatalog(questions []Question) *Catalog {
	c := &Catalog{
		Questions: questions,
		index:     make(map[int]int, len(questions)),
	}
	for i, q := range questions {
		if _, dup := c.index[q.ID]; !dup {
			c.index[q.ID] = i
		}
	}
	return c
}

// Question looks up a question by id
func (c *Catalog) Question(id int) (*Question, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return &c.Questions[i], true
}

// Position returns the catalog index of a question, -1 when absent
func (c *Catalog) Position(id int) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Len returns the number of questions
func (c *Catalog) Len() int {
	return len(c.Questions)
}
