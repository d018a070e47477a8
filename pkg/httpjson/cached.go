package httpjson

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// CachedClient wraps Client with a time-boxed response cache keyed by
// request fingerprint. A miss performs the call synchronously and
// populates the cache; concurrent identical misses coalesce onto a single
// outbound call so slow backends are not hammered.
type CachedClient struct {
	client *Client
	cache  Cache
	ttl    time.Duration

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

// NewCachedClient creates a caching wrapper around client. Responses are
// kept for ttl.
func NewCachedClient(client *Client, cache Cache, ttl time.Duration) *CachedClient {
	return &CachedClient{
		client:   client,
		cache:    cache,
		ttl:      ttl,
		inflight: make(map[string]*sync.Mutex),
	}
}

// GetJSON is like Client.GetJSON but serves repeated requests from the
// cache until the entry expires.
func (c *CachedClient) GetJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	key := Fingerprint("GET", url, headers, nil)
	return c.cached(ctx, key, out, func() ([]byte, error) {
		return c.client.do(ctx, "GET", url, headers, nil)
	})
}

// PostJSON is like Client.PostJSON with cached responses. Only use it for
// idempotent queries; mutating calls must go through the raw Client.
func (c *CachedClient) PostJSON(ctx context.Context, url string, headers map[string]string, payload, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	key := Fingerprint("POST", url, headers, raw)
	return c.cached(ctx, key, out, func() ([]byte, error) {
		return c.client.do(ctx, "POST", url, headers, raw)
	})
}

func (c *CachedClient) cached(ctx context.Context, key string, out interface{}, call func() ([]byte, error)) error {
	if body, ok := c.cache.Get(ctx, key); ok {
		return decode(body, out)
	}

	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	// A concurrent caller may have populated the cache while we waited.
	if body, ok := c.cache.Get(ctx, key); ok {
		return decode(body, out)
	}

	body, err := call()
	if err != nil {
		return err
	}
	c.cache.Set(ctx, key, body, c.ttl)
	return decode(body, out)
}

func (c *CachedClient) lockFor(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.inflight[key]
	if !ok {
		lock = &sync.Mutex{}
		c.inflight[key] = lock
	}
	return lock
}

// Fingerprint derives a stable cache key from the request method, URL,
// headers and body.
func Fingerprint(method, url string, headers map[string]string, body []byte) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(method)
	sb.WriteByte(' ')
	sb.WriteString(url)
	for _, k := range keys {
		sb.WriteByte('\n')
		sb.WriteString(k)
		sb.WriteByte(':')
		sb.WriteString(headers[k])
	}
	if body != nil {
		sb.WriteByte('\n')
		sb.Write(body)
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
