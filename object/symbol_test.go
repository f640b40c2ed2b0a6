package object

import "testing"

// ---------------------------------------------------------------------------
// Symbol interning tests
// ---------------------------------------------------------------------------

func TestSymbolIdentity(t *testing.T) {
	table := NewSymbolTable()
	a := table.Get("player")
	b := table.Get("player")
	if a != b {
		t.Error("same bytes interned to different symbols")
	}
	if a.Name() != "player" {
		t.Errorf("Name() = %q", a.Name())
	}
	a.Release()
	b.Release()
}

func TestSymbolDistinctBytes(t *testing.T) {
	table := NewSymbolTable()
	a := table.Get("alpha")
	b := table.Get("beta")
	if a == b {
		t.Error("distinct bytes interned to the same symbol")
	}
	if a.Hash() == 0 && b.Hash() == 0 {
		t.Error("hashes not computed")
	}
}

func TestSymbolReleaseAndReintern(t *testing.T) {
	table := NewSymbolTable()
	a := table.Get("transient")
	a.Retain()

	a.Release()
	if table.Lookup("transient") == nil {
		t.Fatal("symbol dropped while a reference is live")
	}
	a.Release()
	if table.Lookup("transient") != nil {
		t.Fatal("symbol survived its last release")
	}

	// Re-interning yields a fresh but equal-valued symbol.
	b := table.Get("transient")
	if b == a {
		t.Error("re-interned symbol reused the released pointer identity")
	}
	if b.Name() != a.Name() || b.Hash() != a.Hash() {
		t.Error("re-interned symbol differs in value")
	}
	b.Release()
}

func TestSymbolTableLen(t *testing.T) {
	table := NewSymbolTable()
	if table.Len() != 0 {
		t.Fatal("new table not empty")
	}
	s1 := table.Get("one")
	s2 := table.Get("two")
	table.Get("one").Release() // second handle, released immediately
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
	s1.Release()
	s2.Release()
	if table.Len() != 0 {
		t.Errorf("Len() = %d after releases, want 0", table.Len())
	}
}

func TestRepeatedInterningDuringLoad(t *testing.T) {
	// Loading repeatedly interns the same type name; the identity must
	// hold across any number of Get calls.
	table := NewSymbolTable()
	first := table.Get("scene.Node")
	for i := 0; i < 100; i++ {
		s := table.Get("scene.Node")
		if s != first {
			t.Fatalf("iteration %d produced a different identity", i)
		}
		s.Release()
	}
	first.Release()
}

// ---------------------------------------------------------------------------
// RTTI tests
// ---------------------------------------------------------------------------

func TestRTTIDerivationChain(t *testing.T) {
	base := NewRTTI("engine.Object", nil)
	nodeT := NewRTTI("engine.Node", base)
	camT := NewRTTI("engine.Camera", nodeT)
	other := NewRTTI("engine.Material", base)

	if !camT.IsDerivedFrom(camT) {
		t.Error("type not derived from itself")
	}
	if !camT.IsDerivedFrom(nodeT) || !camT.IsDerivedFrom(base) {
		t.Error("derivation chain broken")
	}
	if camT.IsDerivedFrom(other) {
		t.Error("unrelated types report derivation")
	}
	if base.Base() != nil {
		t.Error("root type has a base")
	}
	if camT.TypeName() != "engine.Camera" {
		t.Errorf("TypeName() = %q", camT.TypeName())
	}
}

func TestRTTINameInterned(t *testing.T) {
	a := NewRTTI("interned.Type", nil)
	if Symbols.Lookup("interned.Type") != a.Name() {
		t.Error("type name symbol not interned in the default table")
	}
}

func TestRegistryReplaceAndMiss(t *testing.T) {
	reg := NewRegistry()
	rt := NewRTTI("test.Replace", nil)

	reg.Register(rt, func() Serializable { return &danglingNode{} })
	obj, err := reg.New("test.Replace")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := obj.(*danglingNode); !ok {
		t.Error("factory produced an unexpected type")
	}

	if _, err := reg.New("test.Missing"); err == nil {
		t.Error("missing factory did not error")
	}
}
