package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuestionarios/internal/model"
)

func sectionCatalog() *model.Catalog {
	return model.NewCatalog([]model.Question{
		{ID: 1, Tipo: model.TipoAbierta, NombreSeccion: "Datos generales"},
		{ID: 2, Tipo: model.TipoSIS, NombreSeccion: "Apoyos", SeccionSIS: "Vida en el hogar"},
		{ID: 3, Tipo: model.TipoED, NombreSeccion: "Entrevista"},
		{ID: 4, Tipo: model.TipoAbierta, NombreSeccion: "Datos generales"},
		{ID: 5, Tipo: model.TipoCH, NombreSeccion: "Entrevista"},
		{ID: 6, Tipo: model.TipoNumero},
	})
}

func sectionNames(sections []model.Section) []string {
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, s.Name)
	}
	return names
}

func TestBuildSectionsPutsSpecialFirst(t *testing.T) {
	sections := BuildSections(sectionCatalog())

	assert.Equal(t, []string{"Entrevista", "Datos generales", "Vida en el hogar", "General"}, sectionNames(sections))
	assert.Equal(t, model.SectionSpecial, sections[0].Type)
	require.Len(t, sections[0].Questions, 2)
	assert.Equal(t, 3, sections[0].Questions[0].ID)
	assert.Equal(t, 5, sections[0].Questions[1].ID)
	assert.Equal(t, model.SectionRegular, sections[1].Type)
	require.Len(t, sections[1].Questions, 2)
	assert.Equal(t, 4, sections[1].Questions[1].ID)
}

func TestNavigatorBounds(t *testing.T) {
	nav := NewNavigator(BuildSections(sectionCatalog()))

	assert.False(t, nav.Prev())
	assert.Equal(t, 0, nav.Index())

	for i := 1; i < nav.Len(); i++ {
		assert.True(t, nav.Next())
	}
	assert.False(t, nav.Next())
	cur, ok := nav.Current()
	require.True(t, ok)
	assert.Equal(t, "General", cur.Name)

	assert.True(t, nav.GoTo(1))
	assert.False(t, nav.GoTo(1))
	assert.False(t, nav.GoTo(99))
	assert.Equal(t, 1, nav.Index())

	assert.Equal(t, 2, nav.SectionOf(2))
	assert.Equal(t, -1, nav.SectionOf(404))
}

func TestNavigatorEmpty(t *testing.T) {
	nav := NewNavigator(nil)

	_, ok := nav.Current()
	assert.False(t, ok)
	assert.False(t, nav.Next())
	assert.False(t, nav.Prev())
}
