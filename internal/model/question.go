package model

// QuestionType is the declared tipo of a catalog question
type QuestionType string

const (
	TipoAbierta            QuestionType = "abierta"             // Open text
	TipoMultiple           QuestionType = "multiple"            // Single choice, radio style
	TipoCheckbox           QuestionType = "checkbox"            // Multiple selection
	TipoDropdown           QuestionType = "dropdown"            // Single choice, select style
	TipoNumero             QuestionType = "numero"              // Numeric input
	TipoFecha              QuestionType = "fecha"               // Date
	TipoFechaHora          QuestionType = "fecha_hora"          // Date and time
	TipoBinaria            QuestionType = "binaria"             // Sí / No
	TipoImagen             QuestionType = "imagen"              // Image slider, numeric value
	TipoMeta               QuestionType = "meta"                // Goal with steps
	TipoCanalizacion       QuestionType = "canalizacion"        // Channeling stage
	TipoCanalizacionCentro QuestionType = "canalizacion_centro" // Channeling to a center
	TipoSIS                QuestionType = "sis"                 // SIS frequency/time/type item
	TipoSIS2               QuestionType = "sis2"                // SIS two-state item
	TipoED                 QuestionType = "ed"                  // Special section form
	TipoCH                 QuestionType = "ch"                  // Special section form
	TipoCampoPerfil        QuestionType = "campo_perfil"        // Bound to a profile field
	TipoCampoPerfilOpcion  QuestionType = "campo_perfil_opcion" // Profile field with options
	TipoDatosDomicilio     QuestionType = "datos_domicilio"     // Demographic form
	TipoDatosMedicos       QuestionType = "datos_medicos"       // Demographic form
)

// Unlock is an outgoing edge: selecting the owning option makes PreguntaDesbloqueada reachable
type Unlock struct {
	PreguntaDesbloqueada int `json:"pregunta_desbloqueada" bson:"pregunta_desbloqueada" yaml:"pregunta_desbloqueada"`
}

// ReceivedUnlock is an incoming edge recorded on the unlocked question
type ReceivedUnlock struct {
	PreguntaOrigen int `json:"pregunta_origen" bson:"pregunta_origen" yaml:"pregunta_origen"`
	Opcion         int `json:"opcion" bson:"opcion" yaml:"opcion"`
}

// Option is one ordered choice of a question
type Option struct {
	ID          int      `json:"id" bson:"id" yaml:"id"`
	Texto       string   `json:"texto" bson:"texto" yaml:"texto"`
	Valor       int      `json:"valor" bson:"valor" yaml:"valor"`
	Desbloqueos []Unlock `json:"desbloqueos,omitempty" bson:"desbloqueos,omitempty" yaml:"desbloqueos,omitempty"`
}

// Question is a catalog question
type Question struct {
	ID                   int              `json:"id" bson:"id" yaml:"id"`
	Tipo                 QuestionType     `json:"tipo" bson:"tipo" yaml:"tipo"`
	Texto                string           `json:"texto" bson:"texto" yaml:"texto"`
	NombreSeccion        string           `json:"nombre_seccion,omitempty" bson:"nombre_seccion,omitempty" yaml:"nombre_seccion,omitempty"`
	SeccionSIS           string           `json:"seccion_sis,omitempty" bson:"seccion_sis,omitempty" yaml:"seccion_sis,omitempty"`
	Opciones             []Option         `json:"opciones,omitempty" bson:"opciones,omitempty" yaml:"opciones,omitempty"`
	DesbloqueosRecibidos []ReceivedUnlock `json:"desbloqueos_recibidos,omitempty" bson:"desbloqueos_recibidos,omitempty" yaml:"desbloqueos_recibidos,omitempty"`
	ProfileFieldPath     string           `json:"profile_field_path,omitempty" bson:"profile_field_path,omitempty" yaml:"profile_field_path,omitempty"`
}

// Gated reports whether the question needs an unlock to be visible
func (q *Question) Gated() bool {
	return len(q.DesbloqueosRecibidos) > 0
}

// OptionByID returns the option with the given id and its index
func (q *Question) OptionByID(id int) (*Option, int) {
	for i := range q.Opciones {
		if q.Opciones[i].ID == id {
			return &q.Opciones[i], i
		}
	}
	return nil, -1
}

// OptionByValor returns the first option carrying valor and its index
func (q *Question) OptionByValor(valor int) (*Option, int) {
	for i := range q.Opciones {
		if q.Opciones[i].Valor == valor {
			return &q.Opciones[i], i
		}
	}
	return nil, -1
}
