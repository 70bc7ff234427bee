package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"cuestionarios/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c := New(Config{BaseURL: ts.URL + "/", Token: "secreto", MaxRetries: 3, Backoff: time.Millisecond}, zaptest.NewLogger(t))
	c.httpClient = ts.Client()
	return c
}

func TestGetQuestionnaire(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cuestionarios/3/", r.URL.Path)
		assert.Equal(t, "Bearer secreto", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"id":3,"nombre":"Entrevista inicial","preguntas":[
			{"id":5,"tipo":"multiple","texto":"¿Trabaja?","opciones":[
				{"id":1,"texto":"Sí","valor":0,"desbloqueos":[{"pregunta_desbloqueada":7}]},
				{"id":2,"texto":"No","valor":1}]},
			{"id":7,"tipo":"abierta","texto":"¿Dónde?","desbloqueos_recibidos":[{"pregunta_origen":5,"opcion":1}]}]}`)
	})

	q, err := c.GetQuestionnaire(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Entrevista inicial", q.Nombre)
	require.Len(t, q.Preguntas, 2)
	assert.Equal(t, 7, q.Preguntas[0].Opciones[0].Desbloqueos[0].PreguntaDesbloqueada)
	assert.True(t, q.Preguntas[1].Gated())
}

func TestListAnswersAcceptsBothShapes(t *testing.T) {
	bodies := []string{
		`[{"usuario":1,"cuestionario":3,"pregunta":5,"respuesta":{"valor":0,"texto":"Sí"}}]`,
		`{"count":1,"results":[{"usuario":1,"cuestionario":3,"pregunta":5,"respuesta":{"valor":0,"texto":"Sí"}}]}`,
	}
	for _, body := range bodies {
		body := body
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("usuario"))
			assert.Equal(t, "3", r.URL.Query().Get("cuestionario"))
			_, _ = io.WriteString(w, body)
		})

		records, err := c.ListAnswers(context.Background(), 1, 3)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 5, records[0].Pregunta)
		assert.JSONEq(t, `{"valor":0,"texto":"Sí"}`, string(records[0].Respuesta))
	}
}

func TestSaveAnswerPostsRecord(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var rec model.AnswerRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		assert.JSONEq(t, `"Sí"`, string(rec.Respuesta))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(rec)
	})

	saved, err := c.SaveAnswer(context.Background(), model.AnswerRecord{Usuario: 1, Cuestionario: 3, Pregunta: 8, Respuesta: json.RawMessage(`"Sí"`)})
	require.NoError(t, err)
	assert.Equal(t, 8, saved.Pregunta)
}

func TestRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"usuario":1,"cuestionario":3,"finalizado":true}`)
	})

	f, err := c.GetFinalization(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.True(t, f.Finalizado)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRateLimitExhaustsRetries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.GetQuestionnaire(context.Background(), 1)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestErrorMapping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/cuestionarios/finalizar-cuestionario/":
			if r.Method == http.MethodGet {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"error":"incompleto"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	f, err := c.GetFinalization(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.False(t, f.Finalizado)

	_, err = c.Finalize(context.Background(), 1, 3)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Contains(t, apiErr.Body, "incompleto")

	_, err = c.GetQuestionnaire(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetProfileFieldValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cuestionarios/profile-fields/user/4/value/datos_medicos.alergias/", r.URL.Path)
		_, _ = io.WriteString(w, `{"valor":false}`)
	})

	v, err := c.GetProfileFieldValue(context.Background(), 4, "datos_medicos.alergias")
	require.NoError(t, err)
	assert.Equal(t, "datos_medicos.alergias", v.Path)
	assert.Equal(t, 4, v.Usuario)
	assert.JSONEq(t, `false`, string(v.Valor))
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.GetQuestionnaire(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
