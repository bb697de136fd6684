package repository

import (
	"strings"

	"matrix_orchestrator/internal/models"
)

// OperatorStore serves the operator accounts declared in the config file.
type OperatorStore struct {
	byName map[string]models.Operator
}

// Ensure implementation of Authorization interface at compile time.
var _ Authorization = (*OperatorStore)(nil)

// NewOperatorStore indexes operators by username and assigns IDs in config
// order, starting at 1. Later duplicates of a username are ignored.
func NewOperatorStore(ops []models.Operator) *OperatorStore {
	byName := make(map[string]models.Operator, len(ops))
	for i, op := range ops {
		name := strings.TrimSpace(op.Username)
		if name == "" || op.PasswordHash == "" {
			continue
		}
		if _, dup := byName[name]; dup {
			continue
		}
		byName[name] = models.Operator{ID: i + 1, Username: name, PasswordHash: op.PasswordHash}
	}
	return &OperatorStore{byName: byName}
}

// GetByUsername returns (nil, nil) if the operator is unknown.
func (s *OperatorStore) GetByUsername(username string) (*models.Operator, error) {
	op, ok := s.byName[strings.TrimSpace(username)]
	if !ok {
		return nil, nil
	}
	return &op, nil
}
