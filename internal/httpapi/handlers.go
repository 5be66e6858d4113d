package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sipproxy-client/internal/audit"
	"sipproxy-client/internal/auth"
	"sipproxy-client/internal/sipproxy"
	"sipproxy-client/pkg/logger"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ProviderService is the subset of *sipproxy.ProviderClient the gateway uses.
type ProviderService interface {
	Create(ctx context.Context, spec sipproxy.ProviderSpec) (*sipproxy.Provider, error)
	Get(ctx context.Context, ref string) (*sipproxy.Provider, error)
	Update(ctx context.Context, patch sipproxy.ProviderPatch) (*sipproxy.Provider, error)
	List(ctx context.Context, opts sipproxy.ListOptions) (*sipproxy.ProviderPage, error)
	Delete(ctx context.Context, ref string) error
}

// MutationLimiter caps concurrent mutations per workspace. *utils.ConcurrencyCap satisfies it.
type MutationLimiter interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Handlers groups the provider HTTP handlers. They translate JSON to
// ProviderClient calls and map gRPC codes to HTTP statuses; nothing else.
// Audit and Limiter are optional.
type Handlers struct {
	Providers ProviderService
	Audit     *audit.Service
	Limiter   MutationLimiter
}

type createProviderRequest struct {
	Name      string  `json:"name"`
	Username  string  `json:"username,omitempty"`
	Secret    string  `json:"secret,omitempty"`
	Host      string  `json:"host"`
	Transport *string `json:"transport,omitempty"`
	Expires   *int32  `json:"expires,omitempty"`
}

type updateProviderRequest struct {
	Name      *string `json:"name,omitempty"`
	Username  *string `json:"username,omitempty"`
	Secret    *string `json:"secret,omitempty"`
	Host      *string `json:"host,omitempty"`
	Transport *string `json:"transport,omitempty"`
	Expires   *int32  `json:"expires,omitempty"`
}

// providerResponse never echoes the secret.
type providerResponse struct {
	Ref       string `json:"ref"`
	Name      string `json:"name"`
	Username  string `json:"username,omitempty"`
	HasSecret bool   `json:"has_secret"`
	Host      string `json:"host"`
	Transport string `json:"transport"`
	Expires   int32  `json:"expires"`
	CreatedAt int64  `json:"created_at,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

type listResponse struct {
	Items         []providerResponse `json:"items"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

func toResponse(p sipproxy.Provider) providerResponse {
	return providerResponse{
		Ref:       p.Ref,
		Name:      p.Name,
		Username:  p.Username,
		HasSecret: p.Secret != "",
		Host:      p.Host,
		Transport: string(p.Transport),
		Expires:   p.Expires,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func transportPtr(s *string) *sipproxy.Transport {
	if s == nil {
		return nil
	}
	t := sipproxy.Transport(strings.ToLower(strings.TrimSpace(*s)))
	return &t
}

func (h Handlers) CreateProvider(c *gin.Context) {
	var req createProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	p, err := h.Providers.Create(c.Request.Context(), sipproxy.ProviderSpec{
		Name:      req.Name,
		Username:  req.Username,
		Secret:    req.Secret,
		Host:      req.Host,
		Transport: transportPtr(req.Transport),
		Expires:   req.Expires,
	})
	ref := ""
	if p != nil {
		ref = p.Ref
	}
	h.record(c, audit.EventTypeProviderCreated, ref, err, nil)
	if err != nil {
		writeRPCError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(*p))
}

func (h Handlers) GetProvider(c *gin.Context) {
	p, err := h.Providers.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(*p))
}

func (h Handlers) ListProviders(c *gin.Context) {
	opts := sipproxy.ListOptions{PageToken: c.Query("page_token")}
	if v := c.Query("page_size"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "page_size must be a non-negative integer"})
			return
		}
		opts.PageSize = int32(n)
	}
	view, ok := parseView(c.Query("view"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "view must be basic, extended or full"})
		return
	}
	opts.View = view

	page, err := h.Providers.List(c.Request.Context(), opts)
	if err != nil {
		writeRPCError(c, err)
		return
	}
	out := listResponse{Items: make([]providerResponse, 0, len(page.Items)), NextPageToken: page.NextPageToken}
	for _, p := range page.Items {
		out.Items = append(out.Items, toResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) UpdateProvider(c *gin.Context) {
	var req updateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ref := c.Param("ref")
	p, err := h.Providers.Update(c.Request.Context(), sipproxy.ProviderPatch{
		Ref:       ref,
		Name:      req.Name,
		Username:  req.Username,
		Secret:    req.Secret,
		Host:      req.Host,
		Transport: transportPtr(req.Transport),
		Expires:   req.Expires,
	})
	h.record(c, audit.EventTypeProviderUpdated, ref, err, map[string]any{"fields": req.fields()})
	if err != nil {
		writeRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(*p))
}

func (h Handlers) DeleteProvider(c *gin.Context) {
	ref := c.Param("ref")
	err := h.Providers.Delete(c.Request.Context(), ref)
	h.record(c, audit.EventTypeProviderDeleted, ref, err, nil)
	if err != nil {
		writeRPCError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LimitMutations holds a per-workspace slot for the rest of the chain.
// Without a Limiter it is a no-op.
func (h Handlers) LimitMutations() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Limiter == nil {
			c.Next()
			return
		}
		workspaceID, err := auth.WorkspaceID(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
			return
		}

		key := "gateway:provider-mutations:" + workspaceID
		ok, err := h.Limiter.Acquire(c.Request.Context(), key)
		if err != nil {
			logger.FromGin(c).Error("mutation cap acquire failed", "err", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "rate limiter unavailable"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many concurrent provider changes"})
			return
		}

		c.Next()

		// Release even if the caller went away mid-request.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Second)
		defer cancel()
		if err := h.Limiter.Release(rctx, key); err != nil {
			logger.FromGin(c).Warn("mutation cap release failed", "err", err)
		}
	}
}

func (r updateProviderRequest) fields() []string {
	var out []string
	if r.Name != nil {
		out = append(out, "name")
	}
	if r.Username != nil {
		out = append(out, "username")
	}
	if r.Secret != nil {
		out = append(out, "secret")
	}
	if r.Host != nil {
		out = append(out, "host")
	}
	if r.Transport != nil {
		out = append(out, "transport")
	}
	if r.Expires != nil {
		out = append(out, "expires")
	}
	return out
}

// record appends an audit event. Failures are logged and never surface to the caller.
func (h Handlers) record(c *gin.Context, typ audit.EventType, ref string, opErr error, meta map[string]any) {
	if h.Audit == nil {
		return
	}
	id, _ := auth.IdentityFrom(c.Request.Context())

	e := audit.Event{
		WorkspaceID: id.WorkspaceID,
		Type:        typ,
		ActorUserID: id.UserID,
		ActorRole:   id.Role,
		IPAddress:   c.ClientIP(),
		RequestID:   logger.RequestID(c.Request.Context()),
		ProviderRef: ref,
		Outcome:     status.Code(opErr).String(),
	}
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			e.Metadata = string(b)
		}
	}
	if err := h.Audit.Append(c.Request.Context(), e); err != nil {
		logger.FromGin(c).Warn("audit append failed", "type", typ, "err", err)
	}
}

func parseView(v string) (sipproxy.View, bool) {
	switch strings.ToLower(v) {
	case "", "basic":
		return sipproxy.ViewBasic, true
	case "extended":
		return sipproxy.ViewExtended, true
	case "full":
		return sipproxy.ViewFull, true
	default:
		return 0, false
	}
}

func writeRPCError(c *gin.Context, err error) {
	st, ok := status.FromError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
			return
		}
		logger.FromGin(c).Error("sip proxy call failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "upstream error"})
		return
	}

	code := http.StatusBadGateway
	switch st.Code() {
	case codes.InvalidArgument:
		code = http.StatusBadRequest
	case codes.NotFound:
		code = http.StatusNotFound
	case codes.FailedPrecondition, codes.AlreadyExists:
		code = http.StatusConflict
	case codes.PermissionDenied:
		code = http.StatusForbidden
	case codes.Unauthenticated:
		code = http.StatusUnauthorized
	case codes.Unavailable:
		code = http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		code = http.StatusGatewayTimeout
	}
	if code >= 500 {
		logger.FromGin(c).Error("sip proxy call failed", "code", st.Code().String(), "err", st.Message())
	}
	c.AbortWithStatusJSON(code, gin.H{"error": st.Message(), "code": st.Code().String()})
}
