package ragclient

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jarwiz-ai/jarwiz/cache"
	"github.com/jarwiz-ai/jarwiz/internal/types"
)

// PageFetcher fetches page images.
type PageFetcher interface {
	PageImage(ctx context.Context, docID string, page int, bbox *types.BBox) ([]byte, string, error)
}

// CachedPages serves page images from a cache, fetching on a miss.
type CachedPages struct {
	fetcher PageFetcher
	cache   *cache.Cache
	ttl     time.Duration
	baseURL string
}

// NewCachedPages wraps c. A nil cache disables caching; a zero ttl uses
// cache.DefaultTTL.
func NewCachedPages(c *Client, store *cache.Cache, ttl time.Duration) *CachedPages {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &CachedPages{fetcher: c, cache: store, ttl: ttl, baseURL: c.BaseURL()}
}

// PageImage returns the page image, caching non-empty fetches. An empty
// cached entry is removed and fetched again.
func (p *CachedPages) PageImage(ctx context.Context, docID string, page int, bbox *types.BBox) ([]byte, string, error) {
	if p.cache == nil {
		return p.fetcher.PageImage(ctx, docID, page, bbox)
	}

	key := cache.GenerateKey(p.baseURL, docID, strconv.Itoa(page), bboxKey(bbox))
	if entry, ok := p.cache.Get(key); ok {
		if len(entry.Data) > 0 {
			slog.Debug("page image cache hit", "doc_id", docID, "page", page)
			return entry.Data, entry.ContentType, nil
		}
		slog.Warn("dropping empty cached page image", "doc_id", docID, "page", page)
		if err := p.cache.Delete(key); err != nil {
			slog.Warn("delete cached page image", "error", err)
		}
	}

	data, contentType, err := p.fetcher.PageImage(ctx, docID, page, bbox)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return data, contentType, nil
	}

	// Best effort
	if err := p.cache.Set(key, &cache.Entry{Data: data, ContentType: contentType}, p.ttl); err != nil {
		slog.Warn("cache page image", "error", err)
	}
	return data, contentType, nil
}

func bboxKey(b *types.BBox) string {
	if !b.Complete() {
		return ""
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return f(*b.X0) + "," + f(*b.Y0) + "," + f(*b.X1) + "," + f(*b.Y1)
}
