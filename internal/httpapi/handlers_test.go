package httpapi

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sipproxy-client/internal/audit"
	"sipproxy-client/internal/auth"
	"sipproxy-client/internal/sipproxy"
	"sipproxy-client/internal/sipproxy/sipproxytest"
	"sipproxy-client/pkg/rpcclient"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stubProviders struct {
	err       error
	lastSpec  sipproxy.ProviderSpec
	lastPatch sipproxy.ProviderPatch
	lastList  sipproxy.ListOptions
}

func (s *stubProviders) Create(ctx context.Context, spec sipproxy.ProviderSpec) (*sipproxy.Provider, error) {
	s.lastSpec = spec
	if s.err != nil {
		return nil, s.err
	}
	return &sipproxy.Provider{Ref: "p-1", Name: spec.Name, Host: spec.Host, Secret: spec.Secret, Transport: sipproxy.TransportTCP, Expires: 3600}, nil
}

func (s *stubProviders) Get(ctx context.Context, ref string) (*sipproxy.Provider, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &sipproxy.Provider{Ref: ref, Name: "n", Host: "h", Secret: "shh"}, nil
}

func (s *stubProviders) Update(ctx context.Context, patch sipproxy.ProviderPatch) (*sipproxy.Provider, error) {
	s.lastPatch = patch
	if s.err != nil {
		return nil, s.err
	}
	return &sipproxy.Provider{Ref: patch.Ref}, nil
}

func (s *stubProviders) List(ctx context.Context, opts sipproxy.ListOptions) (*sipproxy.ProviderPage, error) {
	s.lastList = opts
	if s.err != nil {
		return nil, s.err
	}
	return &sipproxy.ProviderPage{Items: []sipproxy.Provider{{Ref: "a"}, {Ref: "b"}}, NextPageToken: "2"}, nil
}

func (s *stubProviders) Delete(ctx context.Context, ref string) error {
	return s.err
}

type stubLimiter struct {
	allow    bool
	err      error
	acquired int
	released int
}

func (l *stubLimiter) Acquire(ctx context.Context, key string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.allow {
		l.acquired++
	}
	return l.allow, nil
}

func (l *stubLimiter) Release(ctx context.Context, key string) error {
	l.released++
	return nil
}

func newRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u-1", "ws-1", "operator")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	g := r.Group("/v1/providers")
	g.GET("", h.ListProviders)
	g.GET("/:ref", h.GetProvider)
	m := g.Group("", h.LimitMutations())
	m.POST("", h.CreateProvider)
	m.PATCH("/:ref", h.UpdateProvider)
	m.DELETE("/:ref", h.DeleteProvider)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateProvider_PassesOptionalFieldsThrough(t *testing.T) {
	stub := &stubProviders{}
	r := newRouter(Handlers{Providers: stub})

	w := do(r, http.MethodPost, "/v1/providers", `{"name":"trunk","host":"sip.example.com","secret":"s","expires":0}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if stub.lastSpec.Transport != nil {
		t.Fatalf("expected nil transport, got %v", *stub.lastSpec.Transport)
	}
	if stub.lastSpec.Expires == nil || *stub.lastSpec.Expires != 0 {
		t.Fatalf("expected explicit zero expires, got %v", stub.lastSpec.Expires)
	}
	if strings.Contains(w.Body.String(), `"secret"`) {
		t.Fatalf("response must not echo secret: %s", w.Body.String())
	}
	var got providerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Ref != "p-1" || !got.HasSecret {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestCreateProvider_InvalidJSON(t *testing.T) {
	r := newRouter(Handlers{Providers: &stubProviders{}})
	if w := do(r, http.MethodPost, "/v1/providers", `{"name":`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", status.Error(codes.InvalidArgument, "name is required"), http.StatusBadRequest},
		{"not found", status.Error(codes.NotFound, "nope"), http.StatusNotFound},
		{"in use", status.Error(codes.FailedPrecondition, "agents"), http.StatusConflict},
		{"down", status.Error(codes.Unavailable, "down"), http.StatusServiceUnavailable},
		{"internal", status.Error(codes.Internal, "boom"), http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"plain", errors.New("weird"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(Handlers{Providers: &stubProviders{err: tt.err}})
			if w := do(r, http.MethodGet, "/v1/providers/x", ""); w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestListProviders_QueryParams(t *testing.T) {
	stub := &stubProviders{}
	r := newRouter(Handlers{Providers: stub})

	w := do(r, http.MethodGet, "/v1/providers?page_size=2&page_token=4&view=full", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if stub.lastList.PageSize != 2 || stub.lastList.PageToken != "4" || stub.lastList.View != sipproxy.ViewFull {
		t.Fatalf("unexpected options: %+v", stub.lastList)
	}
	var got listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Items) != 2 || got.NextPageToken != "2" {
		t.Fatalf("unexpected page: %+v", got)
	}

	if w := do(r, http.MethodGet, "/v1/providers?page_size=-1", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative page_size, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/v1/providers?view=everything", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown view, got %d", w.Code)
	}
}

func TestUpdateProvider_OnlySetFields(t *testing.T) {
	stub := &stubProviders{}
	r := newRouter(Handlers{Providers: stub})

	w := do(r, http.MethodPatch, "/v1/providers/p-9", `{"host":"sip.zone2","transport":"UDP"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	p := stub.lastPatch
	if p.Ref != "p-9" || p.Host == nil || *p.Host != "sip.zone2" {
		t.Fatalf("unexpected patch: %+v", p)
	}
	if p.Transport == nil || *p.Transport != sipproxy.TransportUDP {
		t.Fatalf("expected normalized udp transport, got %v", p.Transport)
	}
	if p.Name != nil || p.Secret != nil || p.Expires != nil {
		t.Fatalf("unset fields must stay nil: %+v", p)
	}
}

func TestDeleteProvider_NoContent(t *testing.T) {
	r := newRouter(Handlers{Providers: &stubProviders{}})
	if w := do(r, http.MethodDelete, "/v1/providers/p-1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestLimitMutations(t *testing.T) {
	t.Run("rejects when full", func(t *testing.T) {
		lim := &stubLimiter{allow: false}
		r := newRouter(Handlers{Providers: &stubProviders{}, Limiter: lim})
		if w := do(r, http.MethodDelete, "/v1/providers/p-1", ""); w.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", w.Code)
		}
		if lim.released != 0 {
			t.Fatalf("must not release a slot it never held")
		}
	})

	t.Run("releases after success", func(t *testing.T) {
		lim := &stubLimiter{allow: true}
		r := newRouter(Handlers{Providers: &stubProviders{}, Limiter: lim})
		if w := do(r, http.MethodDelete, "/v1/providers/p-1", ""); w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		if lim.acquired != 1 || lim.released != 1 {
			t.Fatalf("expected one acquire and one release, got %d/%d", lim.acquired, lim.released)
		}
	})

	t.Run("limiter error", func(t *testing.T) {
		lim := &stubLimiter{err: errors.New("redis down")}
		r := newRouter(Handlers{Providers: &stubProviders{}, Limiter: lim})
		if w := do(r, http.MethodDelete, "/v1/providers/p-1", ""); w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", w.Code)
		}
	})

	t.Run("reads are not limited", func(t *testing.T) {
		lim := &stubLimiter{allow: false}
		r := newRouter(Handlers{Providers: &stubProviders{}, Limiter: lim})
		if w := do(r, http.MethodGet, "/v1/providers/p-1", ""); w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}

func TestAudit_RecordsOutcome(t *testing.T) {
	repo := audit.NewMemoryRepo()
	stub := &stubProviders{err: status.Error(codes.FailedPrecondition, "agents")}
	r := newRouter(Handlers{Providers: stub, Audit: audit.NewService(repo)})

	if w := do(r, http.MethodDelete, "/v1/providers/p-1", ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	e := evs[0]
	if e.Type != audit.EventTypeProviderDeleted || e.ProviderRef != "p-1" || e.Outcome != "FailedPrecondition" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if e.WorkspaceID != "ws-1" || e.ActorUserID != "u-1" || e.ActorRole != "operator" {
		t.Fatalf("identity not recorded: %+v", e)
	}
}

func TestGateway_AgainstBufconnProxy(t *testing.T) {
	srv := sipproxytest.NewServer()
	defer srv.Close()

	conn, err := srv.Dial(context.Background(), rpcclient.Options{AccessKeyID: "AK-gw"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	r := newRouter(Handlers{Providers: sipproxy.NewProviderClient(conn)})

	w := do(r, http.MethodPost, "/v1/providers", `{"name":"trunk","host":"sip.example.com"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created providerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Transport != "tcp" || created.Expires != 3600 {
		t.Fatalf("defaults not applied: %+v", created)
	}

	if w := do(r, http.MethodPost, "/v1/providers", `{"host":"sip.example.com"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", w.Code)
	}

	srv.AddAgent(created.Ref)
	if w := do(r, http.MethodDelete, "/v1/providers/"+created.Ref, ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while agents remain, got %d", w.Code)
	}
	srv.RemoveAgent(created.Ref)
	if w := do(r, http.MethodDelete, "/v1/providers/"+created.Ref, ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/v1/providers/"+created.Ref, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}
