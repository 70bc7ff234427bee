package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"cuestionarios/internal/cache"
	"cuestionarios/internal/engine"
	"cuestionarios/internal/model"
	"cuestionarios/internal/store"
	"cuestionarios/internal/syncer"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrForbidden       = errors.New("session belongs to another user")
)

// Backend is the questionnaire REST API a session reads from and writes to
type Backend interface {
	GetQuestionnaire(ctx context.Context, id int) (*model.Questionnaire, error)
	ListAnswers(ctx context.Context, usuario, cuestionario int) ([]model.AnswerRecord, error)
	SaveAnswer(ctx context.Context, rec model.AnswerRecord) (*model.AnswerRecord, error)
	GetFinalization(ctx context.Context, usuario, cuestionario int) (*model.Finalization, error)
	Finalize(ctx context.Context, usuario, cuestionario int) (*model.Finalization, error)
	GetProfileFieldValue(ctx context.Context, usuario int, path string) (*model.ProfileFieldValue, error)
}

// SessionOptions tunes sessions
type SessionOptions struct {
	QuietPeriod      time.Duration
	ShortQuietPeriod time.Duration
	UnlockMode       engine.UnlockMode
	// ProfileFetchLimit bounds concurrent profile field requests while opening
	ProfileFetchLimit int
	// LoadTimeout bounds a shared session load, which outlives any single caller
	LoadTimeout time.Duration
}

// Session is one candidate working through one questionnaire
type Session struct {
	Meta          model.SessionMeta
	Questionnaire *model.Questionnaire

	store   *store.Store
	channel *syncer.Channel
	logger  *zap.Logger

	mu  sync.Mutex
	nav *engine.Navigator
}

// SectionView is the current section rendered as input fields
type SectionView struct {
	Index  int            `json:"index"`
	Total  int            `json:"total"`
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Fields []engine.Field `json:"fields"`
}

// SessionView is the observable state of a session
type SessionView struct {
	Meta        model.SessionMeta             `json:"session"`
	Nombre      string                        `json:"nombre"`
	Progress    model.Progress                `json:"progress"`
	Unlocked    []int                         `json:"unlocked"`
	Unanswered  map[int]string                `json:"unanswered"`
	States      map[int]model.SubmissionState `json:"states"`
	Answers     map[int]json.RawMessage       `json:"answers"`
	Section     model.SectionEvent            `json:"section"`
	Finalized   bool                          `json:"finalized"`
	PendingSync int                           `json:"pendingSync"`
}

// SessionService hosts the questionnaire engine for thin clients
type SessionService struct {
	backend     Backend
	cache       cache.SessionCache
	broadcaster Broadcaster
	logger      *zap.Logger
	opts        SessionOptions

	mu       sync.RWMutex
	sessions map[string]*Session
	loads    singleflight.Group
}

// NewSessionService creates a new session service
func NewSessionService(backend Backend, sessionCache cache.SessionCache, broadcaster Broadcaster, logger *zap.Logger, opts SessionOptions) *SessionService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	if opts.ProfileFetchLimit <= 0 {
		opts.ProfileFetchLimit = 4
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 30 * time.Second
	}
	return &SessionService{
		backend:     backend,
		cache:       sessionCache,
		broadcaster: broadcaster,
		logger:      logger.Named("sessions"),
		opts:        opts,
		sessions:    make(map[string]*Session),
	}
}

// Open starts a session, or returns the one already open for the same user and questionnaire
func (s *SessionService) Open(ctx context.Context, usuario, cuestionario int, openedBy string, readOnly bool) (*Session, error) {
	if usuario <= 0 || cuestionario <= 0 {
		return nil, fmt.Errorf("%w: usuario and cuestionario are required", ErrInvalidRecord)
	}

	v, err, _ := s.loads.Do("user:"+sessionKey(usuario, cuestionario), func() (interface{}, error) {
		ctx, cancel := s.sharedContext(ctx)
		defer cancel()

		if id, err := s.cache.FindByUser(ctx, usuario, cuestionario); err != nil {
			s.logger.Warn("session lookup failed", zap.Error(err))
		} else if id != "" {
			if sess, err := s.Get(ctx, id); err == nil {
				return sess, nil
			}
		}

		meta := model.SessionMeta{
			ID:           uuid.NewString(),
			Usuario:      usuario,
			Cuestionario: cuestionario,
			OpenedBy:     openedBy,
			ReadOnly:     readOnly,
			CreatedAt:    time.Now().UTC(),
		}
		sess, err := s.load(ctx, meta)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, &sess.Meta); err != nil {
			s.logger.Warn("session cache write failed", zap.String("session", meta.ID), zap.Error(err))
		}
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Get returns an open session, restoring it from its cached metadata after a restart
func (s *SessionService) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}

	v, err, _ := s.loads.Do(id, func() (interface{}, error) {
		ctx, cancel := s.sharedContext(ctx)
		defer cancel()

		meta, err := s.cache.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read session: %w", err)
		}
		if meta == nil {
			return nil, ErrSessionNotFound
		}
		s.logger.Info("restoring session", zap.String("session", id))
		return s.load(ctx, *meta)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// sharedContext detaches a singleflight load from the caller that started it.
// Other waiters share the result, so one disconnect must not fail them all.
func (s *SessionService) sharedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.opts.LoadTimeout)
}

// load fetches questionnaire, answers and completion status concurrently and
// builds the session state. Nothing is registered when any fetch fails.
func (s *SessionService) load(ctx context.Context, meta model.SessionMeta) (*Session, error) {
	var (
		questionnaire *model.Questionnaire
		records       []model.AnswerRecord
		finalization  *model.Finalization
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := s.backend.GetQuestionnaire(gctx, meta.Cuestionario)
		if err != nil {
			return fmt.Errorf("failed to load questionnaire: %w", err)
		}
		questionnaire = q
		return nil
	})
	g.Go(func() error {
		r, err := s.backend.ListAnswers(gctx, meta.Usuario, meta.Cuestionario)
		if err != nil {
			return fmt.Errorf("failed to load answers: %w", err)
		}
		records = r
		return nil
	})
	g.Go(func() error {
		f, err := s.backend.GetFinalization(gctx, meta.Usuario, meta.Cuestionario)
		if err != nil {
			return fmt.Errorf("failed to load finalization: %w", err)
		}
		finalization = f
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("session load failed", zap.Int("usuario", meta.Usuario), zap.Int("cuestionario", meta.Cuestionario), zap.Error(err))
		return nil, err
	}

	catalog := model.NewCatalog(questionnaire.Preguntas)
	for _, q := range catalog.Questions {
		if !engine.KnownType(q.Tipo) {
			s.logger.Error("catalog has unknown question type", zap.Int("pregunta", q.ID), zap.String("tipo", string(q.Tipo)))
		}
	}

	st := store.New(catalog, s.opts.UnlockMode)
	for id, a := range answersFromRecords(catalog, records, s.logger) {
		st.SetAnswer(id, a)
		st.MarkSubmissionState(id, model.SubmissionSuccess)
	}
	s.seedProfileAnswers(ctx, meta.Usuario, catalog, st)
	st.RecomputeUnlocked()
	if finalization != nil && finalization.Finalizado {
		st.MarkFinalized()
	}

	sess := &Session{
		Meta:          meta,
		Questionnaire: questionnaire,
		store:         st,
		logger:        s.logger.With(zap.String("session", meta.ID)),
		nav:           engine.NewNavigator(engine.BuildSections(catalog)),
	}
	persist := syncer.PersisterFunc(func(ctx context.Context, questionID int, respuesta json.RawMessage) error {
		_, err := s.backend.SaveAnswer(ctx, model.AnswerRecord{
			Usuario:      meta.Usuario,
			Cuestionario: meta.Cuestionario,
			Pregunta:     questionID,
			Respuesta:    respuesta,
		})
		return err
	})
	notify := func(eventType model.EventType, payload any) {
		s.broadcaster.BroadcastToSession(meta.ID, model.Event{SessionID: meta.ID, Type: eventType, Payload: payload})
	}
	sess.channel = syncer.NewChannel(context.Background(), st, persist, notify, s.logger.With(zap.String("session", meta.ID)), syncer.Options{
		QuietPeriod:      s.opts.QuietPeriod,
		ShortQuietPeriod: s.opts.ShortQuietPeriod,
	})

	s.mu.Lock()
	s.sessions[meta.ID] = sess
	s.mu.Unlock()

	s.logger.Info("session opened",
		zap.String("session", meta.ID),
		zap.Int("usuario", meta.Usuario),
		zap.Int("cuestionario", meta.Cuestionario),
		zap.Int("respuestas", len(records)),
	)
	return sess, nil
}

// seedProfileAnswers fills unanswered profile-linked questions from profile
// field values so unlock evaluation sees them. Failures only skip the field.
func (s *SessionService) seedProfileAnswers(ctx context.Context, usuario int, catalog *model.Catalog, st *store.Store) {
	var pending []*model.Question
	for _, q := range profileQuestions(catalog) {
		if _, ok := st.Answer(q.ID); !ok {
			pending = append(pending, q)
		}
	}
	if len(pending) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ProfileFetchLimit)
	for _, q := range pending {
		q := q
		g.Go(func() error {
			v, err := s.backend.GetProfileFieldValue(gctx, usuario, q.ProfileFieldPath)
			if err != nil {
				s.logger.Debug("profile field unavailable", zap.String("path", q.ProfileFieldPath), zap.Error(err))
				return nil
			}
			a, err := decodeProfileValue(q, v)
			if err != nil {
				s.logger.Warn("profile field value rejected", zap.String("path", q.ProfileFieldPath), zap.Error(err))
				return nil
			}
			st.SetAnswer(q.ID, a)
			return nil
		})
	}
	_ = g.Wait()
}

// Authorize checks that usuario may act on the session; staff pass usuario 0
func (s *SessionService) Authorize(sess *Session, usuario int) error {
	if usuario != 0 && sess.Meta.Usuario != usuario {
		return ErrForbidden
	}
	return nil
}

// SubmitAnswer records a raw answer and schedules its write
func (s *SessionService) SubmitAnswer(ctx context.Context, sess *Session, pregunta int, raw json.RawMessage) (model.SubmissionState, error) {
	if sess.Meta.ReadOnly {
		return "", syncer.ErrReadOnly
	}
	answer, err := model.DecodeAnswer(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if err := sess.channel.Submit(pregunta, answer); err != nil {
		return "", err
	}
	s.touch(ctx, sess)
	return sess.store.SubmissionState(pregunta), nil
}

// Retry re-sends a question whose last write failed
func (s *SessionService) Retry(ctx context.Context, sess *Session, pregunta int) (model.SubmissionState, error) {
	if sess.Meta.ReadOnly {
		return "", syncer.ErrReadOnly
	}
	if err := sess.channel.Retry(pregunta); err != nil {
		return "", err
	}
	return sess.store.SubmissionState(pregunta), nil
}

// View returns the observable session state
func (s *SessionService) View(sess *Session) SessionView {
	snap := sess.store.Snapshot()
	catalog := sess.store.Catalog()

	answers := make(map[int]json.RawMessage, len(snap.Answers))
	for id, a := range snap.Answers {
		raw, err := model.EncodeAnswer(a)
		if err != nil {
			continue
		}
		answers[id] = raw
	}

	return SessionView{
		Meta:        sess.Meta,
		Nombre:      sess.Questionnaire.Nombre,
		Progress:    engine.Counts(snap.Answers, snap.Unlocked, catalog),
		Unlocked:    snap.Unlocked.Sorted(),
		Unanswered:  snap.Unanswered,
		States:      snap.States,
		Answers:     answers,
		Section:     sess.sectionEvent(),
		Finalized:   snap.Finalized,
		PendingSync: sess.channel.Pending(),
	}
}

// Progress returns the answered and visible counts
func (s *SessionService) Progress(sess *Session) model.Progress {
	return sess.store.Progress()
}

// CurrentSection renders the current section's visible questions as fields
func (s *SessionService) CurrentSection(sess *Session) (SectionView, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.sectionViewLocked()
}

// Next moves to the next section; past the end it stays put
func (s *SessionService) Next(sess *Session) (SectionView, error) {
	return s.move(sess, func(n *engine.Navigator) bool { return n.Next() })
}

// Prev moves to the previous section; before the start it stays put
func (s *SessionService) Prev(sess *Session) (SectionView, error) {
	return s.move(sess, func(n *engine.Navigator) bool { return n.Prev() })
}

// GoTo jumps to section index
func (s *SessionService) GoTo(sess *Session, index int) (SectionView, error) {
	return s.move(sess, func(n *engine.Navigator) bool { return n.GoTo(index) })
}

func (s *SessionService) move(sess *Session, step func(*engine.Navigator) bool) (SectionView, error) {
	sess.mu.Lock()
	moved := step(sess.nav)
	view, err := sess.sectionViewLocked()
	ev := sess.sectionEventLocked()
	sess.mu.Unlock()

	if moved {
		s.broadcaster.BroadcastToSession(sess.Meta.ID, model.Event{SessionID: sess.Meta.ID, Type: model.EventSectionChanged, Payload: ev})
	}
	return view, err
}

// Finalize flushes pending writes, checks every visible question is answered
// and only then asks the backend to mark the questionnaire complete. When
// answers are missing it moves to the first offending section and returns an
// *engine.IncompleteError without calling the backend.
func (s *SessionService) Finalize(ctx context.Context, sess *Session) (*model.Finalization, error) {
	if sess.store.Finalized() {
		return &model.Finalization{Usuario: sess.Meta.Usuario, Cuestionario: sess.Meta.Cuestionario, Finalizado: true}, nil
	}
	if sess.Meta.ReadOnly {
		return nil, syncer.ErrReadOnly
	}

	if err := sess.channel.Flush(ctx); err != nil {
		return nil, fmt.Errorf("failed to flush pending answers: %w", err)
	}

	snap := sess.store.Snapshot()
	catalog := sess.store.Catalog()
	sess.mu.Lock()
	err := engine.CheckComplete(snap.Answers, snap.Unlocked, catalog, sess.nav.Sections())
	sess.mu.Unlock()

	var incomplete *engine.IncompleteError
	if errors.As(err, &incomplete) {
		for _, m := range incomplete.Missing {
			sess.store.MarkUnanswered(m.QuestionID, m.Hint)
		}
		if first := incomplete.First(); first.SectionIndex >= 0 {
			_, _ = s.GoTo(sess, first.SectionIndex)
		}
		s.logger.Info("finalization blocked",
			zap.String("session", sess.Meta.ID),
			zap.Int("faltantes", len(incomplete.Missing)),
		)
		return nil, err
	}

	f, err := s.backend.Finalize(ctx, sess.Meta.Usuario, sess.Meta.Cuestionario)
	if err != nil {
		s.logger.Warn("backend rejected finalization", zap.String("session", sess.Meta.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to finalize: %w", err)
	}

	sess.store.MarkFinalized()
	s.broadcaster.BroadcastToSession(sess.Meta.ID, model.Event{SessionID: sess.Meta.ID, Type: model.EventFinalized, Payload: f})
	return f, nil
}

// Close cancels pending writes and forgets the session
func (s *SessionService) Close(ctx context.Context, sess *Session) {
	sess.channel.Close()

	s.mu.Lock()
	delete(s.sessions, sess.Meta.ID)
	s.mu.Unlock()

	if err := s.cache.Delete(ctx, &sess.Meta); err != nil {
		s.logger.Warn("session cache delete failed", zap.String("session", sess.Meta.ID), zap.Error(err))
	}
	s.broadcaster.DisconnectSession(sess.Meta.ID)
	s.logger.Info("session closed", zap.String("session", sess.Meta.ID))
}

// Shutdown flushes every open session and stops their writers. Session
// metadata stays cached so the sessions can be restored.
func (s *SessionService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		if err := sess.channel.Flush(ctx); err != nil {
			s.logger.Warn("flush on shutdown failed", zap.String("session", sess.Meta.ID), zap.Error(err))
		}
		sess.channel.Close()
	}
}

func (s *SessionService) touch(ctx context.Context, sess *Session) {
	if err := s.cache.Touch(ctx, sess.Meta.ID); err != nil {
		s.logger.Debug("session touch failed", zap.String("session", sess.Meta.ID), zap.Error(err))
	}
}

func (sess *Session) sectionEvent() model.SectionEvent {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.sectionEventLocked()
}

func (sess *Session) sectionEventLocked() model.SectionEvent {
	ev := model.SectionEvent{Index: sess.nav.Index(), Total: sess.nav.Len()}
	if cur, ok := sess.nav.Current(); ok {
		ev.Name = cur.Name
	}
	return ev
}

func (sess *Session) sectionViewLocked() (SectionView, error) {
	view := SectionView{Index: sess.nav.Index(), Total: sess.nav.Len(), Fields: []engine.Field{}}
	cur, ok := sess.nav.Current()
	if !ok {
		return view, nil
	}
	view.Name = cur.Name
	view.Type = string(cur.Type)

	snap := sess.store.Snapshot()
	disabled := sess.Meta.ReadOnly || snap.Finalized
	for i := range cur.Questions {
		q := &cur.Questions[i]
		if !engine.Visible(q, snap.Unlocked) {
			continue
		}
		state, ok := snap.States[q.ID]
		if !ok {
			state = model.SubmissionNone
		}
		f, err := engine.Dispatch(q, snap.Answers[q.ID], state, disabled, sess.change)
		if err != nil {
			return view, fmt.Errorf("pregunta %d: %w", q.ID, err)
		}
		view.Fields = append(view.Fields, f)
	}
	return view, nil
}

// change is the field callback; it feeds the sync channel like a client edit
func (sess *Session) change(questionID int, answer model.Answer) error {
	if err := sess.channel.Submit(questionID, answer); err != nil {
		sess.logger.Warn("field change rejected", zap.Int("pregunta", questionID), zap.Error(err))
		return err
	}
	return nil
}

func sessionKey(usuario, cuestionario int) string {
	return strconv.Itoa(usuario) + ":" + strconv.Itoa(cuestionario)
}
