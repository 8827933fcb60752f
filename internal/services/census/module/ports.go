package module

import (
	"heapcensus/internal/services/census/board"
	"heapcensus/internal/services/census/domain"
)

// Ports are the census surfaces other modules can wire against
type Ports struct {
	Controller domain.ControllerPort
	Reader     domain.ReaderPort
	Listener   domain.LifecycleListener
	Board      *board.Board
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
