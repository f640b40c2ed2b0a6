package object

import (
	"bytes"
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Test graph type: a scene-style node with a parent pointer and an
// ordered child list, so both cycles and shared references occur.
// ---------------------------------------------------------------------------

var nodeType = NewRTTI("scene.Node", nil)

type node struct {
	name     string
	hp       uint32
	parent   *node
	children []*node
}

func (n *node) TypeInfo() *RTTI { return nodeType }

func (n *node) RegisterGraph(s *Saver) {
	if n.parent != nil {
		s.Register(n.parent)
	}
	for _, c := range n.children {
		s.Register(c)
	}
}

func (n *node) refs() []Serializable {
	out := make([]Serializable, 0, 1+len(n.children))
	var p Serializable
	if n.parent != nil {
		p = n.parent
	}
	out = append(out, p)
	for _, c := range n.children {
		out = append(out, c)
	}
	return out
}

func (n *node) Save(s *Saver) error {
	if err := s.WriteHeader(n, n.name, n.refs()...); err != nil {
		return err
	}
	if err := s.WriteInt32(int32(len(n.children))); err != nil {
		return err
	}
	return s.WriteUint32(n.hp)
}

func (n *node) Load(l *Loader, link *Link) error {
	name, err := l.ReadHeader(link)
	if err != nil {
		return err
	}
	n.name = name
	count, err := l.ReadInt32()
	if err != nil {
		return err
	}
	n.children = make([]*node, count)
	n.hp, err = l.ReadUint32()
	return err
}

func (n *node) Link(l *Loader, link *Link) error {
	p, err := l.ResolveNext(link)
	if err != nil {
		return err
	}
	if p != nil {
		n.parent = p.(*node)
	}
	for i := range n.children {
		c, err := l.ResolveNext(link)
		if err != nil {
			return err
		}
		if c != nil {
			n.children[i] = c.(*node)
		}
	}
	return nil
}

func nodeRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(nodeType, func() Serializable { return &node{} })
	return reg
}

func saveLoad(t *testing.T, root *node) *node {
	t.Helper()
	var buf bytes.Buffer
	if err := Save(&buf, root); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	l := NewLoader(&buf)
	l.SetRegistry(nodeRegistry())
	got, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return got.(*node)
}

// ---------------------------------------------------------------------------
// Round-trip tests
// ---------------------------------------------------------------------------

func TestSingleObjectRoundTrip(t *testing.T) {
	got := saveLoad(t, &node{name: "root", hp: 77})
	if got.name != "root" || got.hp != 77 {
		t.Errorf("got %q/%d, want root/77", got.name, got.hp)
	}
	if got.parent != nil || len(got.children) != 0 {
		t.Error("unexpected references on a lone node")
	}
}

func TestChildOrderPreserved(t *testing.T) {
	root := &node{name: "root"}
	for _, name := range []string{"a", "b", "c", "d"} {
		c := &node{name: name, parent: root}
		root.children = append(root.children, c)
	}

	got := saveLoad(t, root)
	if len(got.children) != 4 {
		t.Fatalf("child count = %d, want 4", len(got.children))
	}
	for i, name := range []string{"a", "b", "c", "d"} {
		if got.children[i].name != name {
			t.Errorf("child %d = %q, want %q", i, got.children[i].name, name)
		}
		if got.children[i].parent != got {
			t.Errorf("child %d parent not re-linked to root", i)
		}
	}
}

func TestSharedReferenceStaysShared(t *testing.T) {
	shared := &node{name: "shared-mesh"}
	left := &node{name: "left", children: []*node{shared}}
	right := &node{name: "right", children: []*node{shared}}
	root := &node{name: "root", children: []*node{left, right}}

	got := saveLoad(t, root)
	l := got.children[0]
	r := got.children[1]
	if len(l.children) != 1 || len(r.children) != 1 {
		t.Fatal("shared child missing after round trip")
	}
	if l.children[0] != r.children[0] {
		t.Error("shared reference was duplicated")
	}
	if l.children[0].name != "shared-mesh" {
		t.Errorf("shared node name = %q", l.children[0].name)
	}
}

func TestTwoNodeCycle(t *testing.T) {
	a := &node{name: "a"}
	b := &node{name: "b", parent: a}
	a.children = []*node{b}

	got := saveLoad(t, a)
	if len(got.children) != 1 {
		t.Fatal("cycle child missing")
	}
	if got.children[0].parent != got {
		t.Error("cycle was not restored: child parent != root")
	}
}

func TestFactoryInvokedOncePerObject(t *testing.T) {
	shared := &node{name: "s"}
	root := &node{name: "r", children: []*node{shared, shared}}
	// The same child appears twice in the list but registers once.

	var buf bytes.Buffer
	if err := Save(&buf, root); err != nil {
		t.Fatal(err)
	}

	made := 0
	reg := NewRegistry()
	reg.Register(nodeType, func() Serializable {
		made++
		return &node{}
	})
	l := NewLoader(&buf)
	l.SetRegistry(reg)
	got, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	if made != 2 {
		t.Errorf("factory invoked %d times, want 2", made)
	}
	r := got.(*node)
	if r.children[0] != r.children[1] {
		t.Error("duplicate edges resolve to different objects")
	}
}

// ---------------------------------------------------------------------------
// Failure-mode tests
// ---------------------------------------------------------------------------

func TestBadSentinel(t *testing.T) {
	var buf bytes.Buffer
	if err := Save(&buf, &node{name: "x"}); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	data[4] = 'X' // first sentinel byte

	l := NewLoader(bytes.NewReader(data))
	l.SetRegistry(nodeRegistry())
	if _, err := l.Load(); !errors.Is(err, ErrBadHeader) {
		t.Errorf("got %v, want ErrBadHeader", err)
	}
}

func TestUnknownTypeAborts(t *testing.T) {
	var buf bytes.Buffer
	if err := Save(&buf, &node{name: "x"}); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(&buf)
	l.SetRegistry(NewRegistry()) // nothing registered
	if _, err := l.Load(); !errors.Is(err, ErrUnknownType) {
		t.Errorf("got %v, want ErrUnknownType", err)
	}
}

func TestTruncatedBodyIsShortRead(t *testing.T) {
	var buf bytes.Buffer
	root := &node{name: "root", children: []*node{{name: "child"}}}
	if err := Save(&buf, root); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	l := NewLoader(bytes.NewReader(data[:len(data)-6]))
	l.SetRegistry(nodeRegistry())
	if _, err := l.Load(); !errors.Is(err, ErrShortRead) {
		t.Errorf("got %v, want ErrShortRead", err)
	}
}

// danglingNode saves a reference to an identifier that no object owns.
var danglingType = NewRTTI("test.Dangling", nil)

type danglingNode struct {
	got Serializable
}

func (d *danglingNode) TypeInfo() *RTTI       { return danglingType }
func (d *danglingNode) RegisterGraph(s *Saver) {}

func (d *danglingNode) Save(s *Saver) error {
	if err := s.WriteString(d.TypeInfo().TypeName()); err != nil {
		return err
	}
	if err := s.WriteUint64(s.ID(d)); err != nil {
		return err
	}
	if err := s.WriteString("dangler"); err != nil {
		return err
	}
	if err := s.WriteInt32(1); err != nil {
		return err
	}
	return s.WriteUint64(0xDEAD) // no such object
}

func (d *danglingNode) Load(l *Loader, link *Link) error {
	_, err := l.ReadHeader(link)
	return err
}

func (d *danglingNode) Link(l *Loader, link *Link) error {
	obj, err := l.ResolveNext(link)
	d.got = obj
	return err
}

func danglingRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(danglingType, func() Serializable { return &danglingNode{} })
	return reg
}

func TestDanglingReferenceLenient(t *testing.T) {
	var buf bytes.Buffer
	if err := Save(&buf, &danglingNode{}); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(&buf)
	l.SetRegistry(danglingRegistry())
	got, err := l.Load()
	if err != nil {
		t.Fatalf("lenient load failed: %v", err)
	}
	if got.(*danglingNode).got != nil {
		t.Error("dangling edge should resolve to nil")
	}
}

func TestDanglingReferenceStrict(t *testing.T) {
	var buf bytes.Buffer
	if err := Save(&buf, &danglingNode{}); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(&buf)
	l.SetRegistry(danglingRegistry())
	l.SetStrict(true)
	if _, err := l.Load(); !errors.Is(err, ErrDanglingReference) {
		t.Errorf("got %v, want ErrDanglingReference", err)
	}
}

func TestLinkExhaustion(t *testing.T) {
	link := &Link{}
	l := NewLoader(&bytes.Buffer{})
	if _, err := l.ResolveNext(link); !errors.Is(err, ErrLinkExhausted) {
		t.Errorf("got %v, want ErrLinkExhausted", err)
	}
}
