package object

import "sync"

// ---------------------------------------------------------------------------
// SymbolTable: ref-counted interned strings
// ---------------------------------------------------------------------------

// Symbol is an interned string. Within one table, obtaining a symbol for
// the same bytes always yields the same pointer, so identity comparison
// is pointer equality. Symbols are reference counted; releasing the last
// reference removes the interned entry.
type Symbol struct {
	table *SymbolTable
	name  string
	hash  uint32
	refs  int32
}

// Name returns the symbol's bytes.
func (s *Symbol) Name() string { return s.name }

// Hash returns the symbol's precomputed FNV-1a hash.
func (s *Symbol) Hash() uint32 { return s.hash }

func (s *Symbol) String() string { return s.name }

// Retain increments the symbol's reference count and returns it.
func (s *Symbol) Retain() *Symbol {
	s.table.mu.Lock()
	s.refs++
	s.table.mu.Unlock()
	return s
}

// Release drops one reference. At zero the symbol leaves the table; a
// later Get of the same bytes yields a fresh, equal-valued symbol.
func (s *Symbol) Release() {
	s.table.mu.Lock()
	s.refs--
	if s.refs <= 0 {
		delete(s.table.syms, s.name)
	}
	s.table.mu.Unlock()
}

// SymbolTable interns symbols. The table outlives individual symbols.
type SymbolTable struct {
	mu   sync.Mutex
	syms map[string]*Symbol
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{syms: make(map[string]*Symbol)}
}

// Get returns the interned symbol for name, creating it on first use.
// The caller holds one reference and pairs it with Release.
func (t *SymbolTable) Get(name string) *Symbol {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.syms[name]; ok {
		s.refs++
		return s
	}
	s := &Symbol{table: t, name: name, hash: fnv32a(name), refs: 1}
	t.syms[name] = s
	return s
}

// Lookup returns the interned symbol for name without retaining it, or
// nil if the bytes are not interned.
func (t *SymbolTable) Lookup(name string) *Symbol {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.syms[name]
}

// Len returns the number of live symbols.
func (t *SymbolTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.syms)
}

// Symbols is the process-wide default table, backing type names and
// object names.
var Symbols = NewSymbolTable()

// GetSymbol interns name in the default table.
func GetSymbol(name string) *Symbol {
	return Symbols.Get(name)
}

func fnv32a(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
