package linearql

// lookup.go resolves names (of teams, states, projects and users) to IDs using a memory
// cache backed by the optional persistent store

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/andrewwphillips/linearql/internal/cache"
	"github.com/andrewwphillips/linearql/internal/metric"
	"github.com/andrewwphillips/linearql/internal/store"
)

type (
	cacheSettings struct {
		ttl     time.Duration
		metrics *metric.Metrics
	}

	// nameIndex maps names to IDs.  Names are grouped into namespaces (eg "team" or
	// "state/<teamID>") which are kept as such in the store.
	nameIndex struct {
		mem    *cache.TTL[string]
		store  *store.Store // may be nil
		root   string       // namespace (prefix) of everything in this index
		logger zerolog.Logger
	}
)

// newCache creates a memory cache with the client's settings
func newCache[V any](c *Client, name string) *cache.TTL[V] {
	return cache.New[V](name, c.cacheOpts.ttl, cache.WithMetrics(c.cacheOpts.metrics))
}

func newNameIndex(c *Client, root string) *nameIndex {
	return &nameIndex{
		mem:    newCache[string](c, root+"_id"),
		store:  c.store,
		root:   root,
		logger: c.logger,
	}
}

// id returns the ID for name in namespace ns.  If not found in the memory cache or the store,
// load is called to get all the names of the namespace, which are then remembered.
func (x *nameIndex) id(ns, name string, load func() (map[string]string, error)) (string, error) {
	key := ns + "/" + name
	if id, ok := x.mem.Get(key); ok {
		return id, nil
	}
	if x.store != nil {
		id, err := x.store.Get(ns, name)
		if err == nil {
			x.mem.Set(key, id)
			return id, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			x.logger.Warn().Err(err).Str("namespace", ns).Msg("store lookup failed")
		}
	}

	return x.mem.GetOrLoad(key, func() (string, error) {
		ids, err := load()
		if err != nil {
			return "", err
		}
		x.add(ns, ids)
		id, ok := ids[name]
		if !ok {
			return "", fmt.Errorf("%w: %s %q", ErrNotFound, x.root, name)
		}
		return id, nil
	})
}

// add remembers the IDs of names in namespace ns
func (x *nameIndex) add(ns string, ids map[string]string) {
	for name, id := range ids {
		x.mem.Set(ns+"/"+name, id)
		if x.store != nil {
			if err := x.store.Put(ns, name, id); err != nil {
				x.logger.Warn().Err(err).Str("namespace", ns).Msg("store update failed")
				return
			}
		}
	}
}

// clear forgets everything in the index
func (x *nameIndex) clear() {
	x.mem.Clear()
	if x.store != nil {
		if err := x.store.DeleteNamespace(x.root); err != nil {
			x.logger.Warn().Err(err).Str("namespace", x.root).Msg("store clear failed")
		}
	}
}
