package price

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

type cachedProvider struct {
	next  Provider
	store *cache.Cache
}

// CachedProvider memoises Fetch results per provider context for ttl.
// Contexts whose end time is still in the future are never cached since
// the last candle is still forming.
func CachedProvider(next Provider, ttl time.Duration) Provider {
	return &cachedProvider{
		next:  next,
		store: cache.New(ttl, 2*ttl),
	}
}

func (p *cachedProvider) Fetch(ctx context.Context, pctx ProviderContext) ([]*Price, error) {
	cacheable := !pctx.EndTime.After(now())

	key := pctx.Key()
	if cacheable {
		if v, ok := p.store.Get(key); ok {
			return v.([]*Price), nil
		}
	}

	prices, err := p.next.Fetch(ctx, pctx)
	if err != nil {
		return nil, err
	}

	if cacheable {
		p.store.SetDefault(key, prices)
	}

	return prices, nil
}
