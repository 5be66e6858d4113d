// Package sipproxytest runs an in-memory Providers service over bufconn,
// for tests that need a real RPC round trip without a SIP proxy.
package sipproxytest

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"sipproxy-client/internal/sipproxy"
	"sipproxy-client/pkg/rpcclient"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// Endpoint is the target to dial together with Server.DialOptions.
const Endpoint = "passthrough:///bufnet"

const defaultPageSize = 10

// Server is a minimal stand-in for the SIP proxy's provider registry.
// Agents are modeled only as a per-provider reference count.
type Server struct {
	mu        sync.Mutex
	providers map[string]sipproxy.Provider
	order     []string
	agents    map[string]int
	lastMD    metadata.MD
	now       func() time.Time

	lis *bufconn.Listener
	gs  *grpc.Server
}

var _ sipproxy.ProvidersServer = (*Server)(nil)

// NewServer starts serving immediately. Call Close when done.
func NewServer() *Server {
	s := &Server{
		providers: map[string]sipproxy.Provider{},
		agents:    map[string]int{},
		now:       time.Now,
		lis:       bufconn.Listen(1 << 20),
	}
	s.gs = grpc.NewServer(grpc.UnaryInterceptor(s.captureMetadata))
	sipproxy.RegisterProvidersServer(s.gs, s)
	go func() { _ = s.gs.Serve(s.lis) }()
	return s
}

// DialOptions route rpcclient.Dial to this server.
func (s *Server) DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return s.lis.DialContext(ctx)
		}),
	}
}

// Dial is a shortcut for an insecure rpcclient.Conn bound to this server.
func (s *Server) Dial(ctx context.Context, opts rpcclient.Options) (*rpcclient.Conn, error) {
	opts.Endpoint = Endpoint
	opts.Insecure = true
	opts.DialOptions = append(s.DialOptions(), opts.DialOptions...)
	return rpcclient.Dial(ctx, opts)
}

func (s *Server) Close() {
	s.gs.Stop()
	_ = s.lis.Close()
}

// AddAgent records an Agent referencing providerRef.
func (s *Server) AddAgent(providerRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[providerRef]++
}

func (s *Server) RemoveAgent(providerRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agents[providerRef] > 0 {
		s.agents[providerRef]--
	}
}

// Put overwrites a stored record, simulating a change made by another client.
func (s *Server) Put(p sipproxy.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.providers[p.Ref]; !ok {
		s.order = append(s.order, p.Ref)
	}
	s.providers[p.Ref] = p
}

// Metadata returns the incoming metadata of the most recent call.
func (s *Server) Metadata() metadata.MD {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMD.Copy()
}

func (s *Server) captureMetadata(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	s.mu.Lock()
	s.lastMD = md
	s.mu.Unlock()
	return handler(ctx, req)
}

func (s *Server) CreateProvider(ctx context.Context, in *sipproxy.CreateProviderRequest) (*sipproxy.Provider, error) {
	if in.Provider == nil {
		return nil, status.Error(codes.InvalidArgument, "provider is required")
	}
	p := *in.Provider
	if err := validate(p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	p.Ref = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.providers[p.Ref] = p
	s.order = append(s.order, p.Ref)
	return &p, nil
}

func (s *Server) GetProvider(ctx context.Context, in *sipproxy.GetProviderRequest) (*sipproxy.Provider, error) {
	if in.Ref == "" {
		return nil, status.Error(codes.InvalidArgument, "ref is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.providers[in.Ref]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "provider %s not found", in.Ref)
	}
	return &p, nil
}

func (s *Server) UpdateProvider(ctx context.Context, in *sipproxy.UpdateProviderRequest) (*sipproxy.Provider, error) {
	if in.Provider == nil || in.Provider.Ref == "" {
		return nil, status.Error(codes.InvalidArgument, "provider.ref is required")
	}
	p := *in.Provider
	if err := validate(p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.providers[p.Ref]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "provider %s not found", p.Ref)
	}
	p.CreatedAt = prev.CreatedAt
	p.UpdatedAt = s.now().Unix()
	s.providers[p.Ref] = p
	return &p, nil
}

func (s *Server) ListProviders(ctx context.Context, in *sipproxy.ListProvidersRequest) (*sipproxy.ListProvidersResponse, error) {
	size := int(in.PageSize)
	if size <= 0 {
		size = defaultPageSize
	}
	start := 0
	if in.PageToken != "" {
		n, err := strconv.Atoi(in.PageToken)
		if err != nil || n < 0 {
			return nil, status.Errorf(codes.InvalidArgument, "invalid page token %q", in.PageToken)
		}
		start = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := &sipproxy.ListProvidersResponse{Providers: []*sipproxy.Provider{}}
	i := start
	for ; i < len(s.order) && len(out.Providers) < size; i++ {
		p := s.providers[s.order[i]]
		if in.View == sipproxy.ViewBasic {
			p.Secret = ""
		}
		out.Providers = append(out.Providers, &p)
	}
	if i < len(s.order) {
		out.NextPageToken = strconv.Itoa(i)
	}
	return out, nil
}

func (s *Server) DeleteProvider(ctx context.Context, in *sipproxy.DeleteProviderRequest) (*sipproxy.Empty, error) {
	if in.Ref == "" {
		return nil, status.Error(codes.InvalidArgument, "ref is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[in.Ref]; !ok {
		return nil, status.Errorf(codes.NotFound, "provider %s not found", in.Ref)
	}
	if n := s.agents[in.Ref]; n > 0 {
		return nil, status.Errorf(codes.FailedPrecondition, "provider %s is referenced by %d agent(s)", in.Ref, n)
	}

	delete(s.providers, in.Ref)
	for i, ref := range s.order {
		if ref == in.Ref {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return &sipproxy.Empty{}, nil
}

func validate(p sipproxy.Provider) error {
	if p.Name == "" {
		return status.Error(codes.InvalidArgument, "name is required")
	}
	if p.Host == "" {
		return status.Error(codes.InvalidArgument, "host is required")
	}
	switch p.Transport {
	case sipproxy.TransportUDP, sipproxy.TransportTCP, sipproxy.TransportTLS,
		sipproxy.TransportSCTP, sipproxy.TransportWS, sipproxy.TransportWSS:
	default:
		return status.Errorf(codes.InvalidArgument, "unsupported transport %q", p.Transport)
	}
	if p.Expires < 0 {
		return status.Error(codes.InvalidArgument, "expires must not be negative")
	}
	return nil
}
