package services

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"geovisor-service/internal/capture"
	"geovisor-service/internal/geodesic"
	"geovisor-service/internal/models"
	"geovisor-service/internal/selection"
)

const sessionTTL = 2 * time.Hour

// Session is one user's live map state: the selection cascade and the
// polygon capture engine, wired so a finalized polygon feeds the selection's
// map-mode area and the selection gates the draw.
type Session struct {
	ID       string
	Engine   *capture.Engine
	Machine  *selection.Machine
	lastSeen time.Time
}

// SessionManager owns the live sessions. Sessions idle past the TTL are
// reaped by a background janitor.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	cropSource selection.CropSource
	done       chan struct{}
}

func NewSessionManager(cropSource selection.CropSource) *SessionManager {
	m := &SessionManager{
		sessions:   make(map[string]*Session),
		cropSource: cropSource,
		done:       make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Create builds a fresh session. The engine's finish gate is the machine's
// locality-and-crop predicate; finalized and cleared polygons flow back
// into the machine's area handling.
func (m *SessionManager) Create() *Session {
	machine := selection.NewMachine(m.cropSource)
	engine := capture.NewEngine(machine.DrawGate())
	engine.Subscribe(func(ev capture.Event) {
		switch ev.Kind {
		case capture.EventPolygonFinalized, capture.EventPolygonCleared:
			machine.OnCaptureEvent(ev.AreaHectares)
		}
	})
	engine.SetLabelFormatter(func(ring models.Ring) string {
		return fmt.Sprintf("%.2f ha", geodesic.Hectares(geodesic.Area(ring)))
	})

	s := &Session{
		ID:       uuid.NewString(),
		Engine:   engine,
		Machine:  machine,
		lastSeen: time.Now(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	slog.Info("session created", "session_id", s.ID)
	return s
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found")
	}
	s.lastSeen = time.Now()
	return s, nil
}

func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		s.Engine.Dispose()
		slog.Info("session deleted", "session_id", id)
	}
}

// Close stops the janitor and disposes every live session.
func (m *SessionManager) Close() {
	close(m.done)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Engine.Dispose()
		delete(m.sessions, id)
	}
}

func (m *SessionManager) janitor() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.reap()
		}
	}
}

func (m *SessionManager) reap() {
	cutoff := time.Now().Add(-sessionTTL)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Engine.Dispose()
		slog.Info("session expired", "session_id", s.ID)
	}
}
