package parser

import (
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/ardnew/shale/lang"
)

// Cache memoizes the diagnostics of parsing a source buffer against a given
// engine scope. The interactive loop validates the input line on every
// keystroke; unchanged input against an unchanged scope skips the re-parse.
//
// Only diagnostics are cached. Parsed blocks bake arena ids of the working
// set that produced them, so they are only valid for the parse that gets
// merged; diagnostics carry no ids and stay valid until the scope changes.
type Cache struct {
	mu      sync.Mutex
	entries map[uint64]lang.ParseErrors
	cap     int
}

// NewCache creates a cache bounded to cap entries.
func NewCache(cap int) *Cache {
	if cap <= 0 {
		cap = 256
	}

	return &Cache{
		entries: make(map[uint64]lang.ParseErrors),
		cap:     cap,
	}
}

// key mixes the source hash with the engine's arena sizes: any merged parse
// changes the visible scope and therefore the key, invalidating prior
// entries implicitly.
func (c *Cache) key(engine *lang.EngineState, src []byte) uint64 {
	seed := uint64(engine.NumDecls())<<42 ^
		uint64(engine.NumVars())<<21 ^
		uint64(engine.NumBlocks())

	return xxh3.HashSeed(src, seed)
}

// Diagnostics returns the cached diagnostics for src under the engine's
// current scope.
func (c *Cache) Diagnostics(
	engine *lang.EngineState,
	src []byte,
) (lang.ParseErrors, bool) {
	k := c.key(engine, src)

	c.mu.Lock()
	defer c.mu.Unlock()

	errs, ok := c.entries[k]

	return errs, ok
}

// Store records the diagnostics of one parse. When the cache fills, it is
// dropped wholesale; entries are cheap to recompute.
func (c *Cache) Store(
	engine *lang.EngineState,
	src []byte,
	errs lang.ParseErrors,
) {
	k := c.key(engine, src)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.cap {
		c.entries = make(map[uint64]lang.ParseErrors)
	}

	c.entries[k] = errs
}

// Validate parses src for diagnostics only, consulting the cache first. The
// working set it creates is never merged, so validation has no effect on
// the engine.
func (c *Cache) Validate(engine *lang.EngineState, src []byte) lang.ParseErrors {
	if errs, ok := c.Diagnostics(engine, src); ok {
		return errs
	}

	ws := lang.NewWorkingSet(engine)
	Parse(ws, src)

	c.Store(engine, src, ws.Errors)

	return ws.Errors
}
