package ocr

import (
	"log/slog"
	"sort"
	"sync"
)

// Manager is the engine registry. Engines are kept sorted by descending
// priority; ties keep registration order.
type Manager struct {
	logger  *slog.Logger
	engines []Engine
	mu      sync.RWMutex
}

// NewManager creates an empty registry.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// Register adds e. An engine with the same identifier is replaced in place.
func (m *Manager) Register(e Engine) {
	m.mu.Lock()
	defer m.mu.Unlock()

	replaced := false
	for i, existing := range m.engines {
		if existing.Identifier() == e.Identifier() {
			m.engines[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		m.engines = append(m.engines, e)
	}

	sort.SliceStable(m.engines, func(i, j int) bool {
		return m.engines[i].Priority() > m.engines[j].Priority()
	})

	m.logger.Debug("Registered OCR engine",
		"engine", e.Identifier(),
		"priority", e.Priority(),
		"replaced", replaced)
}

// FindEngine returns the highest-priority engine that supports every tag.
// An empty language list selects the default engine.
func (m *Manager) FindEngine(languages []string) (Engine, bool) {
	if len(languages) == 0 {
		return m.DefaultEngine()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.engines {
		if supportsAll(e, languages) {
			return e, true
		}
	}
	return nil, false
}

// DefaultEngine returns the highest-priority engine.
func (m *Manager) DefaultEngine() (Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.engines) == 0 {
		return nil, false
	}
	return m.engines[0], true
}

// Engine looks an engine up by identifier.
func (m *Manager) Engine(identifier string) (Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.engines {
		if e.Identifier() == identifier {
			return e, true
		}
	}
	return nil, false
}

// Engines returns a snapshot in priority order.
func (m *Manager) Engines() []Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Engine, len(m.engines))
	copy(out, m.engines)
	return out
}

func supportsAll(e Engine, languages []string) bool {
	for _, tag := range languages {
		if !e.SupportsLanguage(tag) {
			return false
		}
	}
	return true
}
