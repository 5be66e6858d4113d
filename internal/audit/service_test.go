package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestService_AppendRequiresWorkspaceAndType(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Event{Type: EventTypeProviderCreated}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if err := svc.Append(context.Background(), Event{WorkspaceID: "w"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestService_FillsIDTimeAndOutcome(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	fixed := time.Unix(1700000000, 0)
	svc.clock = func() time.Time { return fixed }

	err := svc.Append(context.Background(), Event{
		WorkspaceID: "w",
		Type:        EventTypeProviderDeleted,
		ProviderRef: "ref-1",
		IPAddress:   "1.2.3.4",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	e := evs[0]
	if e.ID == "" || !e.CreatedAt.Equal(fixed) || e.Outcome != "OK" {
		t.Fatalf("expected defaults filled, got %+v", e)
	}
	if e.ProviderRef != "ref-1" || e.IPAddress != "1.2.3.4" {
		t.Fatalf("expected fields kept, got %+v", e)
	}
}

func TestNewPostgresRepo_RequiresDB(t *testing.T) {
	if _, err := NewPostgresRepo(nil); err == nil {
		t.Fatalf("expected error")
	}
}
