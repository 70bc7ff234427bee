package engine

import (
	"cuestionarios/internal/model"
)

func siNoQuestion(id int, tipo model.QuestionType, unlocks ...int) model.Question {
	var des []model.Unlock
	for _, u := range unlocks {
		des = append(des, model.Unlock{PreguntaDesbloqueada: u})
	}
	return model.Question{
		ID:    id,
		Tipo:  tipo,
		Texto: "¿Cuenta con seguro médico?",
		Opciones: []model.Option{
			{ID: 1, Valor: 0, Texto: "Sí", Desbloqueos: des},
			{ID: 2, Valor: 1, Texto: "No"},
		},
	}
}

func gated(id int, tipo model.QuestionType, from, opcion int) model.Question {
	return model.Question{
		ID:                   id,
		Tipo:                 tipo,
		Texto:                "Pregunta condicional",
		DesbloqueosRecibidos: []model.ReceivedUnlock{{PreguntaOrigen: from, Opcion: opcion}},
	}
}

func colorsQuestion(id int) model.Question {
	return model.Question{
		ID:    id,
		Tipo:  model.TipoCheckbox,
		Texto: "Colores favoritos",
		Opciones: []model.Option{
			{ID: 1, Valor: 10, Texto: "Rojo"},
			{ID: 2, Valor: 20, Texto: "Verde", Desbloqueos: []model.Unlock{{PreguntaDesbloqueada: 30}}},
			{ID: 3, Valor: 30, Texto: "Azul", Desbloqueos: []model.Unlock{{PreguntaDesbloqueada: 31}}},
		},
	}
}
