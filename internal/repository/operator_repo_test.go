package repository

import (
	"testing"

	"matrix_orchestrator/internal/models"
)

func TestOperatorStore_GetByUsername(t *testing.T) {
	t.Parallel()

	store := NewOperatorStore([]models.Operator{
		{Username: "alice", PasswordHash: "h1"},
		{Username: "", PasswordHash: "h2"},
		{Username: "bob", PasswordHash: ""},
		{Username: " alice ", PasswordHash: "dup"},
		{Username: "carol", PasswordHash: "h3"},
	})

	op, err := store.GetByUsername("alice")
	if err != nil || op == nil {
		t.Fatalf("expected alice, got %v %v", op, err)
	}
	if op.ID != 1 || op.PasswordHash != "h1" {
		t.Fatalf("first definition must win: %+v", op)
	}

	if op, _ := store.GetByUsername("carol"); op == nil || op.ID != 5 {
		t.Fatalf("unexpected carol: %+v", op)
	}
	for _, name := range []string{"bob", "", "mallory"} {
		if op, err := store.GetByUsername(name); op != nil || err != nil {
			t.Fatalf("%q: expected (nil, nil), got (%+v, %v)", name, op, err)
		}
	}
}
