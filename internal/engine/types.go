// Package engine holds the questionnaire rules: answer normalization, validity,
// unlock resolution, sections, progress and finalization checks. Everything here
// is a pure function over a catalog and an answer map.
package engine

import (
	"errors"
	"fmt"

	"cuestionarios/internal/model"
)

// ErrUnknownQuestionType is returned for a tipo this engine does not know.
// Catalog/client version drift should fail loudly instead of passing values through.
var ErrUnknownQuestionType = errors.New("unknown question type")

type family int

const (
	familyText family = iota
	familyDate
	familyChoice
	familyCheckbox
	familyBinary
	familyNumeric
	familyComposite
	familyProfile
)

type typeSpec struct {
	family    family
	component string
	hint      string
	special   bool // ED/CH questions live in special sections
	short     bool // persisted after the short quiet period
}

var typeSpecs = map[model.QuestionType]typeSpec{
	model.TipoAbierta:            {family: familyText, component: "texto_abierto", hint: hintText},
	model.TipoFecha:              {family: familyDate, component: "fecha", hint: hintDate},
	model.TipoFechaHora:          {family: familyDate, component: "fecha_hora", hint: hintDate},
	model.TipoMultiple:           {family: familyChoice, component: "opcion_multiple", hint: hintChoice},
	model.TipoDropdown:           {family: familyChoice, component: "lista_desplegable", hint: hintChoice},
	model.TipoCampoPerfilOpcion:  {family: familyChoice, component: "campo_perfil_opcion", hint: hintChoice},
	model.TipoCheckbox:           {family: familyCheckbox, component: "casillas", hint: hintCheckbox},
	model.TipoBinaria:            {family: familyBinary, component: "binaria", hint: hintBinary},
	model.TipoNumero:             {family: familyNumeric, component: "numero", hint: hintNumber},
	model.TipoImagen:             {family: familyNumeric, component: "deslizador_imagen", hint: hintNumber},
	model.TipoSIS:                {family: familyComposite, component: "sis_frecuencia", hint: hintSIS, short: true},
	model.TipoSIS2:               {family: familyComposite, component: "sis_dos_estados", hint: hintSIS, short: true},
	model.TipoED:                 {family: familyComposite, component: "entrevista_ed", hint: hintForm, special: true, short: true},
	model.TipoCH:                 {family: familyComposite, component: "entrevista_ch", hint: hintForm, special: true, short: true},
	model.TipoMeta:               {family: familyComposite, component: "meta_pasos", hint: hintGoal, short: true},
	model.TipoCanalizacion:       {family: familyComposite, component: "canalizacion", hint: hintForm, short: true},
	model.TipoCanalizacionCentro: {family: familyComposite, component: "canalizacion_centro", hint: hintForm, short: true},
	model.TipoDatosDomicilio:     {family: familyComposite, component: "datos_domicilio", hint: hintForm, short: true},
	model.TipoDatosMedicos:       {family: familyComposite, component: "datos_medicos", hint: hintForm, short: true},
	model.TipoCampoPerfil:        {family: familyProfile, component: "campo_perfil", hint: hintDefault},
}

func lookup(t model.QuestionType) (typeSpec, error) {
	spec, ok := typeSpecs[t]
	if !ok {
		return typeSpec{}, fmt.Errorf("%w: %q", ErrUnknownQuestionType, t)
	}
	return spec, nil
}

// KnownType reports whether t is handled by the engine
func KnownType(t model.QuestionType) bool {
	_, ok := typeSpecs[t]
	return ok
}

// IsSpecialType reports whether t belongs in a special (ED/CH) section
func IsSpecialType(t model.QuestionType) bool {
	return typeSpecs[t].special
}

// UsesShortQuietPeriod reports whether answers of type t are persisted after the
// short debounce window
func UsesShortQuietPeriod(t model.QuestionType) bool {
	return typeSpecs[t].short
}
