package pythoncatalog

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
)

// DefaultCacheSize is the number of lookups remembered by NewCachingCatalog
const DefaultCacheSize = 4096

// NewCachingCatalog wraps another catalog and caches the results of its lookups
func NewCachingCatalog(cat Catalog, size int) Catalog {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return &cachingCatalog{
		cat:   cat,
		cache: cache,
	}
}

// cachingCatalog wraps a Catalog and caches its responses. The wrapped catalog
// must not change while the cache is in use.
type cachingCatalog struct {
	cat   Catalog
	cache *lru.Cache
}

func (c *cachingCatalog) cacheKey(name string, arg string) string {
	if arg == "" {
		return name
	}
	return name + "_" + arg
}

// caching returns a cached result, if it already exists. Otherwise valueProvider is called, the result is cached and then returned
func (c *cachingCatalog) caching(name string, arg string, valueProvider func() interface{}) interface{} {
	key := c.cacheKey(name, arg)
	if v, ok := c.cache.Get(key); ok {
		return v
	}
	v := valueProvider()
	c.cache.Add(key, v)
	return v
}

type lookupResult struct {
	v  pythonvalue.Value
	ok bool
}

func (c *cachingCatalog) Builtin(name string) (pythonvalue.Value, bool) {
	res := c.caching("Builtin", name, func() interface{} {
		v, ok := c.cat.Builtin(name)
		return lookupResult{v: v, ok: ok}
	}).(lookupResult)
	return res.v, res.ok
}

func (c *cachingCatalog) Module(name string) (*pythonvalue.Module, bool) {
	type response struct {
		m  *pythonvalue.Module
		ok bool
	}
	res := c.caching("Module", name, func() interface{} {
		m, ok := c.cat.Module(name)
		return response{m: m, ok: ok}
	}).(response)
	return res.m, res.ok
}

func (c *cachingCatalog) Classes() []*pythonvalue.Class {
	return c.caching("Classes", "", func() interface{} {
		return c.cat.Classes()
	}).([]*pythonvalue.Class)
}

func (c *cachingCatalog) ClassesWithAttr(attr string) []*pythonvalue.Class {
	return c.caching("ClassesWithAttr", attr, func() interface{} {
		return c.cat.ClassesWithAttr(attr)
	}).([]*pythonvalue.Class)
}
