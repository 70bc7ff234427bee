package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"cuestionarios/internal/model"
	"cuestionarios/internal/service"
)

// loadCatalogFile reads every YAML document in path as a questionnaire
func loadCatalogFile(path string) ([]*model.Questionnaire, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	catalogs, err := decodeCatalogs(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalogs, nil
}

func decodeCatalogs(r io.Reader) ([]*model.Questionnaire, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var out []*model.Questionnaire
	for {
		var q model.Questionnaire
		err := dec.Decode(&q)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", len(out)+1, err)
		}
		fillReceivedUnlocks(&q)
		if err := service.ValidateCatalog(&q); err != nil {
			return nil, fmt.Errorf("document %d: %w", len(out)+1, err)
		}
		out = append(out, &q)
	}
	if len(out) == 0 {
		return nil, errors.New("no catalogs found")
	}
	return out, nil
}

// fillReceivedUnlocks derives each question's incoming edges from the options'
// desbloqueos so catalog files only declare the outgoing side.
func fillReceivedUnlocks(q *model.Questionnaire) {
	declared := make(map[int]bool)
	for _, p := range q.Preguntas {
		if len(p.DesbloqueosRecibidos) > 0 {
			declared[p.ID] = true
		}
	}

	index := make(map[int]int, len(q.Preguntas))
	for i, p := range q.Preguntas {
		index[p.ID] = i
	}
	for _, p := range q.Preguntas {
		for _, opt := range p.Opciones {
			for _, u := range opt.Desbloqueos {
				i, ok := index[u.PreguntaDesbloqueada]
				if !ok || declared[u.PreguntaDesbloqueada] {
					continue
				}
				q.Preguntas[i].DesbloqueosRecibidos = append(q.Preguntas[i].DesbloqueosRecibidos, model.ReceivedUnlock{PreguntaOrigen: p.ID, Opcion: opt.ID})
			}
		}
	}
}
