package sipproxy

import (
	"context"

	"google.golang.org/grpc"
)

// Wire messages and the stub for the sipproxy.v1.Providers service.
// Encoded with the rpcclient JSON codec.

const providersServiceName = "sipproxy.v1.Providers"

const (
	methodCreateProvider = "/" + providersServiceName + "/CreateProvider"
	methodGetProvider    = "/" + providersServiceName + "/GetProvider"
	methodUpdateProvider = "/" + providersServiceName + "/UpdateProvider"
	methodListProviders  = "/" + providersServiceName + "/ListProviders"
	methodDeleteProvider = "/" + providersServiceName + "/DeleteProvider"
)

type CreateProviderRequest struct {
	Provider *Provider `json:"provider"`
}

type GetProviderRequest struct {
	Ref string `json:"ref"`
}

type UpdateProviderRequest struct {
	Provider *Provider `json:"provider"`
}

type ListProvidersRequest struct {
	PageSize  int32  `json:"pageSize"`
	PageToken string `json:"pageToken,omitempty"`
	View      View   `json:"view"`
}

type ListProvidersResponse struct {
	Providers     []*Provider `json:"providers"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
}

type DeleteProviderRequest struct {
	Ref string `json:"ref"`
}

type Empty struct{}

// ProvidersClient is the raw RPC surface. Most callers want ProviderClient.
type ProvidersClient interface {
	CreateProvider(ctx context.Context, in *CreateProviderRequest, opts ...grpc.CallOption) (*Provider, error)
	GetProvider(ctx context.Context, in *GetProviderRequest, opts ...grpc.CallOption) (*Provider, error)
	UpdateProvider(ctx context.Context, in *UpdateProviderRequest, opts ...grpc.CallOption) (*Provider, error)
	ListProviders(ctx context.Context, in *ListProvidersRequest, opts ...grpc.CallOption) (*ListProvidersResponse, error)
	DeleteProvider(ctx context.Context, in *DeleteProviderRequest, opts ...grpc.CallOption) (*Empty, error)
}

type providersClient struct {
	cc grpc.ClientConnInterface
}

func NewProvidersClient(cc grpc.ClientConnInterface) ProvidersClient {
	return &providersClient{cc: cc}
}

func (c *providersClient) CreateProvider(ctx context.Context, in *CreateProviderRequest, opts ...grpc.CallOption) (*Provider, error) {
	out := new(Provider)
	if err := c.cc.Invoke(ctx, methodCreateProvider, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *providersClient) GetProvider(ctx context.Context, in *GetProviderRequest, opts ...grpc.CallOption) (*Provider, error) {
	out := new(Provider)
	if err := c.cc.Invoke(ctx, methodGetProvider, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *providersClient) UpdateProvider(ctx context.Context, in *UpdateProviderRequest, opts ...grpc.CallOption) (*Provider, error) {
	out := new(Provider)
	if err := c.cc.Invoke(ctx, methodUpdateProvider, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *providersClient) ListProviders(ctx context.Context, in *ListProvidersRequest, opts ...grpc.CallOption) (*ListProvidersResponse, error) {
	out := new(ListProvidersResponse)
	if err := c.cc.Invoke(ctx, methodListProviders, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *providersClient) DeleteProvider(ctx context.Context, in *DeleteProviderRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, methodDeleteProvider, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ProvidersServer is implemented by the SIP proxy (or a test double).
type ProvidersServer interface {
	CreateProvider(ctx context.Context, in *CreateProviderRequest) (*Provider, error)
	GetProvider(ctx context.Context, in *GetProviderRequest) (*Provider, error)
	UpdateProvider(ctx context.Context, in *UpdateProviderRequest) (*Provider, error)
	ListProviders(ctx context.Context, in *ListProvidersRequest) (*ListProvidersResponse, error)
	DeleteProvider(ctx context.Context, in *DeleteProviderRequest) (*Empty, error)
}

func RegisterProvidersServer(s grpc.ServiceRegistrar, srv ProvidersServer) {
	s.RegisterService(&providersServiceDesc, srv)
}

// unaryHandler adapts one typed server method to grpc's method handler shape.
func unaryHandler[Req any, Resp any](fullMethod string, call func(ProvidersServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ProvidersServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ProvidersServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var providersServiceDesc = grpc.ServiceDesc{
	ServiceName: providersServiceName,
	HandlerType: (*ProvidersServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateProvider",
			Handler:    unaryHandler(methodCreateProvider, ProvidersServer.CreateProvider),
		},
		{
			MethodName: "GetProvider",
			Handler:    unaryHandler(methodGetProvider, ProvidersServer.GetProvider),
		},
		{
			MethodName: "UpdateProvider",
			Handler:    unaryHandler(methodUpdateProvider, ProvidersServer.UpdateProvider),
		},
		{
			MethodName: "ListProviders",
			Handler:    unaryHandler(methodListProviders, ProvidersServer.ListProviders),
		},
		{
			MethodName: "DeleteProvider",
			Handler:    unaryHandler(methodDeleteProvider, ProvidersServer.DeleteProvider),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sipproxy/v1/providers.proto",
}
