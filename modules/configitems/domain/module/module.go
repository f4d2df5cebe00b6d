package module

import (
	"errors"

	"github.com/google/uuid"
)

// Module is the namespace that owns configuration items.
type Module struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsEnabled bool      `json:"is_enabled"`
}

func New(name string) *Module {
	return &Module{ID: uuid.New(), Name: name, IsEnabled: true}
}

var ErrNotFound = errors.New("module not found")
