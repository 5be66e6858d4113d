package audit

import "time"

// Event is an append-only record of a provider change made through the gateway.
//
// Invariants:
// - Events are never updated or deleted.
// - WorkspaceID and Type are required.
// - Metadata never contains provider secrets.
type Event struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Type        EventType `json:"type" db:"type"`

	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`
	RequestID   string `json:"request_id,omitempty" db:"request_id"`

	ProviderRef string `json:"provider_ref,omitempty" db:"provider_ref"`

	// Outcome is the gRPC status code name, "OK" on success.
	Outcome string `json:"outcome" db:"outcome"`

	// Metadata is optional JSON (e.g. the list of patched fields).
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeProviderCreated EventType = "provider_created"
	EventTypeProviderUpdated EventType = "provider_updated"
	EventTypeProviderDeleted EventType = "provider_deleted"
)
