package sipproxy

import (
	"context"

	"sipproxy-client/pkg/rpcclient"
)

// Async variants start the call and return a future.
// Cancel ctx to abandon the RPC itself.

func (c *ProviderClient) CreateAsync(ctx context.Context, spec ProviderSpec) *rpcclient.Future[*Provider] {
	return rpcclient.Async(ctx, func(ctx context.Context) (*Provider, error) {
		return c.Create(ctx, spec)
	})
}

func (c *ProviderClient) GetAsync(ctx context.Context, ref string) *rpcclient.Future[*Provider] {
	return rpcclient.Async(ctx, func(ctx context.Context) (*Provider, error) {
		return c.Get(ctx, ref)
	})
}

func (c *ProviderClient) UpdateAsync(ctx context.Context, patch ProviderPatch) *rpcclient.Future[*Provider] {
	return rpcclient.Async(ctx, func(ctx context.Context) (*Provider, error) {
		return c.Update(ctx, patch)
	})
}

func (c *ProviderClient) ListAsync(ctx context.Context, opts ListOptions) *rpcclient.Future[*ProviderPage] {
	return rpcclient.Async(ctx, func(ctx context.Context) (*ProviderPage, error) {
		return c.List(ctx, opts)
	})
}

func (c *ProviderClient) DeleteAsync(ctx context.Context, ref string) *rpcclient.Future[struct{}] {
	return rpcclient.Async(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.Delete(ctx, ref)
	})
}
