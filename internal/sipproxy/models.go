package sipproxy

import "log/slog"

// Provider is a SIP trunk registration held by the SIP proxy.
//
// Invariants:
// - Ref is assigned by the proxy and never generated here.
// - Name and Host are required on create.
// - Username/Secret are empty for static-IP (ACL) authentication.
type Provider struct {
	Ref       string    `json:"ref"`
	Name      string    `json:"name"`
	Username  string    `json:"username,omitempty"`
	Secret    string    `json:"secret,omitempty"`
	Host      string    `json:"host"`
	Transport Transport `json:"transport"`

	// Expires is the registration expiration in seconds.
	Expires int32 `json:"expires"`

	// Unix seconds, set by the proxy.
	CreatedAt int64 `json:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

type Transport string

const (
	TransportUDP  Transport = "udp"
	TransportTCP  Transport = "tcp"
	TransportTLS  Transport = "tls"
	TransportSCTP Transport = "sctp"
	TransportWS   Transport = "ws"
	TransportWSS  Transport = "wss"
)

// Defaults applied on create when the caller leaves the field unset.
const (
	DefaultTransport = TransportTCP
	DefaultExpires   = int32(3600)
)

// View selects how much of each record List returns. Passed through as-is.
type View int32

const (
	ViewBasic    View = 0
	ViewExtended View = 1
	ViewFull     View = 2
)

// ProviderSpec is the input to Create.
// Transport and Expires are optional; nil means "use the default".
// A non-nil zero Expires is sent as 0.
type ProviderSpec struct {
	Name      string
	Username  string
	Secret    string
	Host      string
	Transport *Transport
	Expires   *int32
}

// ProviderPatch is the input to Update. Nil fields keep their current value.
type ProviderPatch struct {
	Ref       string
	Name      *string
	Username  *string
	Secret    *string
	Host      *string
	Transport *Transport
	Expires   *int32
}

type ListOptions struct {
	PageSize  int32
	PageToken string
	View      View
}

// ProviderPage is one page of List results.
// An empty NextPageToken means there are no more pages.
type ProviderPage struct {
	Items         []Provider
	NextPageToken string
}

func resolveTransport(t *Transport) Transport {
	if t == nil || *t == "" {
		return DefaultTransport
	}
	return *t
}

func resolveExpires(e *int32) int32 {
	if e == nil {
		return DefaultExpires
	}
	return *e
}

// applyPatch returns current with every non-nil field of p overlaid.
// Ref is never changed.
func applyPatch(current Provider, p ProviderPatch) Provider {
	out := current
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Username != nil {
		out.Username = *p.Username
	}
	if p.Secret != nil {
		out.Secret = *p.Secret
	}
	if p.Host != nil {
		out.Host = *p.Host
	}
	if p.Transport != nil {
		out.Transport = *p.Transport
	}
	if p.Expires != nil {
		out.Expires = *p.Expires
	}
	return out
}

// LogValue keeps the secret out of logs.
func (p Provider) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("ref", p.Ref),
		slog.String("name", p.Name),
		slog.String("host", p.Host),
		slog.String("transport", string(p.Transport)),
		slog.Int("expires", int(p.Expires)),
	)
}
