package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/stagegraph"
)

// Pipeline is the part of the pipeline service a conversation drives.
type Pipeline interface {
	Intake(ctx context.Context, req app.IntakeRequest) (*app.IntakeResult, error)
	AdvanceBatch(ctx context.Context, req app.BatchAdvanceRequest) (*app.BatchAdvanceResult, error)
	ActiveTitles(ctx context.Context, stage domain.Stage) ([]string, error)
	ActiveForStages(ctx context.Context, stages []domain.Stage) ([]app.StageActive, error)
}

// Sections lists admitted titles and their chapters.
type Sections interface {
	Get(ctx context.Context, title string) (*domain.Section, error)
	Titles(ctx context.Context) ([]string, error)
}

// Roster records the roles actors pick for themselves.
type Roster interface {
	GrantRole(ctx context.Context, id string, role domain.Role) (bool, error)
}

// Gate answers access questions. *access.Gate satisfies it.
type Gate interface {
	Roles(ctx context.Context, actorID string) ([]domain.Role, error)
	CanIntake(ctx context.Context, actorID string) error
	CanComplete(ctx context.Context, actorID string, stage domain.Stage) error
}

// Deps bundles what a Manager needs.
type Deps struct {
	Graph    *stagegraph.Graph
	Pipeline Pipeline
	Sections Sections
	Roster   Roster
	Gate     Gate
}

// Session is the conversation record of one actor.
type Session struct {
	ActorID string
	Step    Step
	// Collected while admitting chapters.
	Title       string
	RawChapters string
	NewChapters []string
	// Collected while finishing work.
	Stage     domain.Stage
	UpdatedAt time.Time

	mu sync.Mutex
}

func (s *Session) reset() {
	s.Step = StepMenu
	s.Title = ""
	s.RawChapters = ""
	s.NewChapters = nil
	s.Stage = ""
}

// Manager owns the sessions of every actor. Inputs of one actor are handled
// one at a time; different actors proceed independently.
type Manager struct {
	deps Deps
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a Manager with no open sessions.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) session(actorID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[actorID]
	if !ok {
		s = &Session{ActorID: actorID, Step: StepMenu}
		m.sessions[actorID] = s
	}
	return s
}

// Step reports where actor's conversation is.
func (m *Manager) Step(actorID string) Step {
	s := m.session(actorID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Step
}

// Reset drops actor's session.
func (m *Manager) Reset(actorID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, actorID)
}

// Handle applies one input from actor and returns the reply. An error means
// the store failed; the session is left at its previous step.
func (m *Manager) Handle(ctx context.Context, actorID, text string) (Reply, error) {
	s := m.session(actorID)
	s.mu.Lock()
	defer s.mu.Unlock()

	text = strings.TrimSpace(text)
	t, ok := lookup(s.Step, text)
	if !ok {
		reply, err := m.prompt(ctx, s)
		if err != nil {
			return Reply{}, err
		}
		reply.Text = "Unknown option. " + reply.Text
		return reply, nil
	}

	next, reply, err := t.effect(ctx, m, s, text)
	if err != nil {
		return Reply{}, err
	}
	if next == StepMenu {
		s.reset()
	}
	s.Step = next
	s.UpdatedAt = m.now()
	return reply, nil
}
