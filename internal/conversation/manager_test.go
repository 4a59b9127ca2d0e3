package conversation

import (
	"context"
	"testing"
)

func TestManagerCreateAndGet(t *testing.T) {
	m := NewManager(Deps{Generator: &fakeGenerator{options: sinhalaOptions}})
	defer m.CloseAll()

	id, created := m.Create()
	if id == "" {
		t.Fatal("expected non-empty conversation id")
	}

	got, ok := m.Get(id)
	if !ok {
		t.Fatalf("conversation %s not found after create", id)
	}
	if got != created {
		t.Fatal("Get returned a different coordinator than Create")
	}
}

func TestManagerCloseRemovesConversation(t *testing.T) {
	m := NewManager(Deps{Generator: &fakeGenerator{options: sinhalaOptions}})
	defer m.CloseAll()

	id, coordinator := m.Create()
	if err := m.Close(id); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if _, ok := m.Get(id); ok {
		t.Fatal("conversation still retrievable after close")
	}
	if err := coordinator.SendDoctorMessage(context.Background(), "ඔබට කොහොමද?"); err != ErrClosed {
		t.Fatalf("expected ErrClosed from closed coordinator, got %v", err)
	}
}

func TestManagerCloseUnknownID(t *testing.T) {
	m := NewManager(Deps{})
	if err := m.Close("missing"); err != ErrConversationNotFound {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestManagerCloseAll(t *testing.T) {
	m := NewManager(Deps{Generator: &fakeGenerator{options: sinhalaOptions}})

	idA, _ := m.Create()
	idB, _ := m.Create()

	m.CloseAll()

	if _, ok := m.Get(idA); ok {
		t.Fatal("first conversation survived CloseAll")
	}
	if _, ok := m.Get(idB); ok {
		t.Fatal("second conversation survived CloseAll")
	}
}
