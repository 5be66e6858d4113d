package rpcclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sipproxy-client/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Metadata keys attached to every outgoing call.
const (
	MetadataAccessKeyID   = "access_key_id"
	MetadataAuthorization = "authorization"
	MetadataRequestID     = "x-request-id"
)

var ErrEndpointRequired = errors.New("rpcclient: endpoint is required")

// TokenSource yields the bearer token sent with each call.
// Implementations must be safe for concurrent use.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Options configures the shared channel.
// Everything except Endpoint is optional.
type Options struct {
	Endpoint string

	// Insecure disables transport security (local proxies, tests).
	Insecure bool
	// TLS is used unless Insecure is set. Nil means system roots, TLS 1.2+.
	TLS *tls.Config

	AccessKeyID string
	Credentials TokenSource

	// Metadata is static key/value metadata added to every call.
	Metadata map[string]string

	// Logger enables per-call logging. Nil disables it.
	Logger *slog.Logger

	// WaitReady blocks Dial until the channel is connected or ConnectTimeout elapses.
	WaitReady      bool
	ConnectTimeout time.Duration

	// DialOptions are passed through to grpc.NewClient after the defaults.
	DialOptions []grpc.DialOption
}

func (o Options) withDefaults() Options {
	out := o
	out.Endpoint = strings.TrimSpace(out.Endpoint)
	if out.ConnectTimeout <= 0 {
		out.ConnectTimeout = 5 * time.Second
	}
	if out.TLS == nil && !out.Insecure {
		out.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return out
}

// Conn is the channel handle shared by every entity client built on it.
// It is immutable after Dial and safe for concurrent use.
type Conn struct {
	cc *grpc.ClientConn
}

var _ grpc.ClientConnInterface = (*Conn)(nil)

// Dial builds the channel. Connection happens lazily unless WaitReady is set.
func Dial(ctx context.Context, opts Options) (*Conn, error) {
	opts = opts.withDefaults()
	if opts.Endpoint == "" {
		return nil, ErrEndpointRequired
	}

	var creds credentials.TransportCredentials
	if opts.Insecure {
		creds = insecure.NewCredentials()
	} else {
		creds = credentials.NewTLS(opts.TLS)
	}

	interceptors := []grpc.UnaryClientInterceptor{
		metadataInterceptor(opts.Metadata, opts.AccessKeyID, opts.Credentials),
	}
	if opts.Logger != nil {
		interceptors = append(interceptors, logger.UnaryClientInterceptor(opts.Logger))
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
		grpc.WithChainUnaryInterceptor(interceptors...),
	}
	dialOpts = append(dialOpts, opts.DialOptions...)

	cc, err := grpc.NewClient(opts.Endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: dial %s: %w", opts.Endpoint, err)
	}

	if opts.WaitReady {
		if err := waitReady(ctx, cc, opts.ConnectTimeout); err != nil {
			_ = cc.Close()
			return nil, err
		}
	}
	return &Conn{cc: cc}, nil
}

func (c *Conn) Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, method, args, reply, opts...)
}

func (c *Conn) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return c.cc.NewStream(ctx, desc, method, opts...)
}

func (c *Conn) Target() string { return c.cc.Target() }

func (c *Conn) Close() error { return c.cc.Close() }

func waitReady(ctx context.Context, cc *grpc.ClientConn, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cc.Connect()
	for {
		s := cc.GetState()
		if s == connectivity.Ready {
			return nil
		}
		if !cc.WaitForStateChange(ctx, s) {
			return fmt.Errorf("rpcclient: %s not ready (last state %s): %w", cc.Target(), s, ctx.Err())
		}
	}
}

func metadataInterceptor(static map[string]string, accessKeyID string, tokens TokenSource) grpc.UnaryClientInterceptor {
	base := make([]string, 0, 2*len(static)+2)
	for k, v := range static {
		base = append(base, k, v)
	}
	if accessKeyID != "" {
		base = append(base, MetadataAccessKeyID, accessKeyID)
	}

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		kv := base[:len(base):len(base)]
		if tokens != nil {
			tok, err := tokens.Token(ctx)
			if err != nil {
				return fmt.Errorf("rpcclient: token for %s: %w", method, err)
			}
			kv = append(kv, MetadataAuthorization, "Bearer "+tok)
		}
		if rid := logger.RequestID(ctx); rid != "" {
			kv = append(kv, MetadataRequestID, rid)
		}
		if len(kv) > 0 {
			ctx = metadata.AppendToOutgoingContext(ctx, kv...)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
