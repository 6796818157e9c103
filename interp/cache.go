package interp

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/gowasm/wat/ast"
)

// ProgramCache memoizes parsed programs and instantiated modules keyed by
// the xxhash of their WAT source text, so a host that re-parses or
// re-instantiates byte-identical source — the CLI re-running the same
// file, or a WAST script's repeated (assert_return ...) directives
// sharing one (module ...) block — skips the work the second time.
type ProgramCache struct {
	mu       sync.RWMutex
	programs map[uint64]*ast.Program
	modules  map[uint64]Addr
}

// NewProgramCache builds an empty cache.
func NewProgramCache() *ProgramCache {
	return &ProgramCache{
		programs: make(map[uint64]*ast.Program),
		modules:  make(map[uint64]Addr),
	}
}

// Key hashes source text into a cache key.
func Key(source []byte) uint64 { return xxhash.Sum64(source) }

// LookupProgram returns a previously cached parse of source, if any.
func (c *ProgramCache) LookupProgram(source []byte) (*ast.Program, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.programs[Key(source)]
	return p, ok
}

// StoreProgram records a successful parse of source.
func (c *ProgramCache) StoreProgram(source []byte, prog *ast.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[Key(source)] = prog
}

// LookupModule returns a previously instantiated module's address for
// source, if any. The caller must use the same Allocator the module was
// instantiated against — a cache hit from a different allocator's Addr
// space is a caller bug, not something this cache can detect.
func (c *ProgramCache) LookupModule(source []byte) (Addr, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	addr, ok := c.modules[Key(source)]
	return addr, ok
}

// StoreModule records a successful instantiation of source.
func (c *ProgramCache) StoreModule(source []byte, addr Addr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modules[Key(source)] = addr
}
