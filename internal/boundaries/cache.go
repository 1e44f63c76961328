package boundaries

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/wx-graphics/internal/observability"
)

// CachedStore wraps a Store with an in-memory LRU of decoded layers, bounded
// by their total vertex count. A county or zone file holds far more points
// than the state outlines, so the budget is in vertices rather than layers.
type CachedStore struct {
	inner   Store
	cache   *layerCache
	metrics *observability.Metrics
}

// NewCachedStore creates a cache decorator around a store holding at most
// maxVertices points across all cached layers.
func NewCachedStore(inner Store, maxVertices int, metrics *observability.Metrics) *CachedStore {
	return &CachedStore{
		inner:   inner,
		cache:   newLayerCache(maxVertices),
		metrics: metrics,
	}
}

func (c *CachedStore) Layer(ctx context.Context, name string) (Layer, error) {
	if layer, ok := c.cache.get(name); ok {
		c.metrics.BoundaryCache.WithLabelValues("hit").Inc()
		return layer, nil
	}
	c.metrics.BoundaryCache.WithLabelValues("miss").Inc()
	layer, err := c.inner.Layer(ctx, name)
	if err != nil {
		// Errors are not cached so a layer file added later is picked up.
		return layer, err
	}
	if evicted := c.cache.put(name, layer); evicted > 0 {
		c.metrics.BoundaryCache.WithLabelValues("evict").Add(float64(evicted))
	}
	return layer, nil
}

// layerCache is a thread-safe LRU of layers weighted by vertex count.
type layerCache struct {
	mu          sync.Mutex
	maxVertices int
	vertices    int
	order       *list.List // of *cachedLayer, most recently used first
	byName      map[string]*list.Element
}

type cachedLayer struct {
	name     string
	layer    Layer
	vertices int
}

func newLayerCache(maxVertices int) *layerCache {
	if maxVertices < 1 {
		maxVertices = 1
	}
	return &layerCache{
		maxVertices: maxVertices,
		order:       list.New(),
		byName:      make(map[string]*list.Element),
	}
}

// weight is the budget a layer consumes; empty layers still take one unit.
func weight(l Layer) int {
	return max(l.Vertices(), 1)
}

func (c *layerCache) get(name string) (Layer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.byName[name]
	if !ok {
		return Layer{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cachedLayer).layer, true
}

// put stores layer under name and returns how many other layers were evicted
// to stay within budget. A layer larger than the whole budget is not kept.
func (c *layerCache) put(name string, layer Layer) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := weight(layer)
	if el, ok := c.byName[name]; ok {
		c.drop(el)
	}
	if w > c.maxVertices {
		return 0
	}

	el := c.order.PushFront(&cachedLayer{name: name, layer: layer, vertices: w})
	c.byName[name] = el
	c.vertices += w

	evicted := 0
	for c.vertices > c.maxVertices {
		c.drop(c.order.Back())
		evicted++
	}
	return evicted
}

func (c *layerCache) drop(el *list.Element) {
	cl := c.order.Remove(el).(*cachedLayer)
	delete(c.byName, cl.name)
	c.vertices -= cl.vertices
}

func (c *layerCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *layerCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vertices
}
