package resource

import (
	"bytes"
	"testing"

	"github.com/chazu/glacier/object"
)

// sceneNode is a minimal scene-graph node for exercising resource
// handles across a save/load round trip.
type sceneNode struct {
	name     string
	meshPath string
	children []*sceneNode
}

var sceneNodeType = object.NewRTTI("scene.MeshNode", nil)

func (n *sceneNode) TypeInfo() *object.RTTI { return sceneNodeType }

func (n *sceneNode) RegisterGraph(s *object.Saver) {
	for _, c := range n.children {
		s.Register(c)
	}
}

func (n *sceneNode) refs() []object.Serializable {
	out := make([]object.Serializable, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *sceneNode) Save(s *object.Saver) error {
	if err := s.WriteHeader(n, n.name, n.refs()...); err != nil {
		return err
	}
	if err := s.WriteInt32(int32(len(n.children))); err != nil {
		return err
	}
	return s.WriteString(n.meshPath)
}

func (n *sceneNode) Load(l *object.Loader, link *object.Link) error {
	name, err := l.ReadHeader(link)
	if err != nil {
		return err
	}
	n.name = name
	count, err := l.ReadInt32()
	if err != nil {
		return err
	}
	n.children = make([]*sceneNode, count)
	n.meshPath, err = l.ReadString()
	return err
}

func (n *sceneNode) Link(l *object.Loader, link *object.Link) error {
	for i := range n.children {
		obj, err := l.ResolveNext(link)
		if err != nil {
			return err
		}
		if obj != nil {
			n.children[i] = obj.(*sceneNode)
		}
	}
	return nil
}

func TestSharedMeshAcrossSceneLoad(t *testing.T) {
	root := &sceneNode{name: "root"}
	root.children = []*sceneNode{
		{name: "left", meshPath: "m.ice"},
		{name: "right", meshPath: "m.ice"},
	}

	var buf bytes.Buffer
	if err := object.Save(&buf, root); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reg := object.NewRegistry()
	reg.Register(sceneNodeType, func() object.Serializable { return &sceneNode{} })
	loader := object.NewLoader(&buf)
	loader.SetRegistry(reg)
	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := loaded.(*sceneNode)
	if len(got.children) != 2 {
		t.Fatalf("loaded %d children, want 2", len(got.children))
	}

	// Both children name the same mesh; resolving their handles through
	// one manager must yield one in-memory instance.
	meshStream := encode(t, &Mesh{
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:   []uint32{0, 1, 2},
	})
	mgr := NewManager(memOpener{"m.ice": meshStream})

	left, err := LoadMesh(mgr, got.children[0].meshPath)
	if err != nil {
		t.Fatal(err)
	}
	right, err := LoadMesh(mgr, got.children[1].meshPath)
	if err != nil {
		t.Fatal(err)
	}
	if left != right {
		t.Fatal("children resolved the shared mesh to distinct instances")
	}
	if mgr.Len() != 1 {
		t.Fatalf("manager holds %d resources, want 1", mgr.Len())
	}
}
