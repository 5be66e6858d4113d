package sipproxy

import (
	"context"
	"strings"

	"google.golang.org/grpc"
)

// ProviderClient is the typed façade over the proxy's Providers service.
//
// It holds no state besides the channel, so one instance can serve any number
// of concurrent calls. Callers serialize dependent operations themselves
// (e.g. Update and Delete on the same ref).
type ProviderClient struct {
	rpc ProvidersClient
}

// NewProviderClient builds a client over a shared channel, typically *rpcclient.Conn.
func NewProviderClient(cc grpc.ClientConnInterface) *ProviderClient {
	return &ProviderClient{rpc: NewProvidersClient(cc)}
}

func newCreateProviderRequest(spec ProviderSpec) *CreateProviderRequest {
	return &CreateProviderRequest{Provider: &Provider{
		Name:      spec.Name,
		Username:  spec.Username,
		Secret:    spec.Secret,
		Host:      spec.Host,
		Transport: resolveTransport(spec.Transport),
		Expires:   resolveExpires(spec.Expires),
	}}
}

// Create registers a new Provider. Transport defaults to tcp and Expires to 3600
// when unset. Missing name or host is rejected by the proxy with InvalidArgument.
func (c *ProviderClient) Create(ctx context.Context, spec ProviderSpec) (*Provider, error) {
	return c.rpc.CreateProvider(ctx, newCreateProviderRequest(spec))
}

// Get fails with NotFound for an unknown ref and InvalidArgument for an empty one.
func (c *ProviderClient) Get(ctx context.Context, ref string) (*Provider, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, invalidArgument("ref is required")
	}
	return c.rpc.GetProvider(ctx, &GetProviderRequest{Ref: ref})
}

// Update merges patch into the current record and sends the result.
//
// The fetch and the write are two calls: a concurrent change made between
// them is overwritten (last write wins).
func (c *ProviderClient) Update(ctx context.Context, patch ProviderPatch) (*Provider, error) {
	current, err := c.Get(ctx, patch.Ref)
	if err != nil {
		return nil, err
	}

	merged := applyPatch(*current, patch)
	return c.rpc.UpdateProvider(ctx, &UpdateProviderRequest{Provider: &merged})
}

// List returns one page. Options are forwarded unmodified; ordering is the proxy's.
func (c *ProviderClient) List(ctx context.Context, opts ListOptions) (*ProviderPage, error) {
	res, err := c.rpc.ListProviders(ctx, &ListProvidersRequest{
		PageSize:  opts.PageSize,
		PageToken: opts.PageToken,
		View:      opts.View,
	})
	if err != nil {
		return nil, err
	}

	page := &ProviderPage{
		Items:         make([]Provider, 0, len(res.Providers)),
		NextPageToken: res.NextPageToken,
	}
	for _, p := range res.Providers {
		if p == nil {
			continue
		}
		page.Items = append(page.Items, *p)
	}
	return page, nil
}

// Delete fails with FailedPrecondition while Agents still reference the Provider.
func (c *ProviderClient) Delete(ctx context.Context, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return invalidArgument("ref is required")
	}
	if _, err := c.rpc.DeleteProvider(ctx, &DeleteProviderRequest{Ref: ref}); err != nil {
		return err
	}
	return nil
}
