// Package object persists cyclic, polymorphic object graphs through a
// byte stream. Saving collects the graph into an ordered list with
// stable per-object identifiers and writes each object's type tag and
// body; loading re-instantiates through a type-name factory and resolves
// deferred references in a second pass, so cycles and shared references
// survive the round trip.
package object

import (
	"encoding/binary"
	"fmt"
	"io"
)

// topLevelSentinel opens every object stream.
const topLevelSentinel = "Top Level"

// maxStringLen bounds length-prefixed strings; anything larger is a
// corrupt stream, not a plausible name.
const maxStringLen = 1 << 20

// Serializable is the hook set a type implements to participate in
// save/load.
type Serializable interface {
	// TypeInfo returns the type's static RTTI record.
	TypeInfo() *RTTI

	// RegisterGraph calls Saver.Register on every object this one
	// references. The saver invokes it once per object during the
	// collection walk.
	RegisterGraph(s *Saver)

	// Save writes the object: the standard prologue via
	// Saver.WriteHeader, then the object's own payload.
	Save(s *Saver) error

	// Load reads what Save wrote: the prologue via Loader.ReadHeader,
	// then the payload. References are not resolved yet.
	Load(l *Loader, link *Link) error

	// Link resolves this object's references via Loader.ResolveNext, in
	// the order they were registered. Every saved object exists by the
	// time Link runs.
	Link(l *Loader, link *Link) error
}

// ---------------------------------------------------------------------------
// Saver
// ---------------------------------------------------------------------------

// Saver drives one save pass. It lives for a single Save call.
type Saver struct {
	w       io.Writer
	ids     map[Serializable]uint64
	ordered []Serializable
	nextID  uint64
}

// Save writes the graph reachable from root to w.
func Save(w io.Writer, root Serializable) error {
	s := &Saver{
		w:      w,
		ids:    make(map[Serializable]uint64),
		nextID: 1,
	}
	s.Register(root)

	if err := s.WriteString(topLevelSentinel); err != nil {
		return err
	}
	if err := s.WriteInt32(int32(len(s.ordered))); err != nil {
		return err
	}
	for _, obj := range s.ordered {
		if err := obj.Save(s); err != nil {
			return err
		}
	}
	return nil
}

// Register records obj in visitation order and assigns its identifier,
// then walks its references. A second visit is a no-op, which is what
// terminates cycles.
func (s *Saver) Register(obj Serializable) {
	if obj == nil {
		return
	}
	if _, ok := s.ids[obj]; ok {
		return
	}
	s.ids[obj] = s.nextID
	s.nextID++
	s.ordered = append(s.ordered, obj)
	obj.RegisterGraph(s)
}

// ID returns the identifier assigned to obj during registration, or 0
// for nil and unregistered objects. Identifiers are never dereferenced
// on load; they only re-establish cross-references.
func (s *Saver) ID(obj Serializable) uint64 {
	if obj == nil {
		return 0
	}
	return s.ids[obj]
}

// WriteHeader emits the standard object prologue: type name, the
// object's identifier, its name, and the identifiers of its referenced
// children in order.
func (s *Saver) WriteHeader(obj Serializable, name string, children ...Serializable) error {
	if err := s.WriteString(obj.TypeInfo().TypeName()); err != nil {
		return err
	}
	if err := s.WriteUint64(s.ID(obj)); err != nil {
		return err
	}
	if err := s.WriteString(name); err != nil {
		return err
	}
	if err := s.WriteInt32(int32(len(children))); err != nil {
		return err
	}
	for _, child := range children {
		if err := s.WriteUint64(s.ID(child)); err != nil {
			return err
		}
	}
	return nil
}

// WriteString writes a uint32-length-prefixed string.
func (s *Saver) WriteString(v string) error {
	if err := s.WriteUint32(uint32(len(v))); err != nil {
		return err
	}
	_, err := io.WriteString(s.w, v)
	return err
}

// WriteBytes writes raw bytes with no prefix.
func (s *Saver) WriteBytes(p []byte) error {
	_, err := s.w.Write(p)
	return err
}

// WriteUint64 writes a little-endian uint64.
func (s *Saver) WriteUint64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := s.w.Write(buf[:])
	return err
}

// WriteUint32 writes a little-endian uint32.
func (s *Saver) WriteUint32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := s.w.Write(buf[:])
	return err
}

// WriteInt32 writes a little-endian int32.
func (s *Saver) WriteInt32(v int32) error {
	return s.WriteUint32(uint32(v))
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// Link is the per-object record holding the ordered, unresolved child
// identifiers between the materialize and link phases.
type Link struct {
	// Object is the constructed but not yet linked instance.
	Object Serializable

	ids  []uint64
	next int
}

// Loader drives one load pass. It lives for a single Load call.
type Loader struct {
	r        io.Reader
	registry *Registry
	byID     map[uint64]*Link
	links    []*Link
	strict   bool
}

// NewLoader creates a loader over r using the default factory registry.
func NewLoader(r io.Reader) *Loader {
	return &Loader{
		r:        r,
		registry: DefaultRegistry,
		byID:     make(map[uint64]*Link),
	}
}

// SetRegistry substitutes the factory registry consulted during load.
func (l *Loader) SetRegistry(reg *Registry) { l.registry = reg }

// SetStrict makes a dangling reference fatal instead of resolving to nil.
func (l *Loader) SetStrict(strict bool) { l.strict = strict }

// Load materializes every saved object, runs the link phase, and returns
// the first object written, which is the save root. On error any
// partially constructed objects are the caller's to discard.
func (l *Loader) Load() (Serializable, error) {
	sentinel, err := l.ReadString()
	if err != nil {
		return nil, err
	}
	if sentinel != topLevelSentinel {
		return nil, fmt.Errorf("%w: sentinel %q", ErrBadHeader, sentinel)
	}
	count, err := l.ReadInt32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: negative object count", ErrBadHeader)
	}

	// Phase A: materialize. Every saved object is constructed through
	// its factory exactly once, in save order.
	for i := int32(0); i < count; i++ {
		typeName, err := l.ReadString()
		if err != nil {
			return nil, err
		}
		obj, err := l.registry.New(typeName)
		if err != nil {
			return nil, err
		}
		link := &Link{Object: obj}
		l.links = append(l.links, link)
		if err := obj.Load(l, link); err != nil {
			return nil, err
		}
	}

	// Phase B: link. All targets exist now, so cycles resolve naturally.
	for _, link := range l.links {
		link.next = 0
		if err := link.Object.Link(l, link); err != nil {
			return nil, err
		}
	}

	if len(l.links) == 0 {
		return nil, nil
	}
	return l.links[0].Object, nil
}

// ReadHeader consumes the prologue written by Saver.WriteHeader (minus
// the type name, which dispatched the factory): the saved identifier,
// the object name, and the child identifier list. The identifier is
// mapped to link for the link phase.
func (l *Loader) ReadHeader(link *Link) (name string, err error) {
	id, err := l.ReadUint64()
	if err != nil {
		return "", err
	}
	l.byID[id] = link

	name, err = l.ReadString()
	if err != nil {
		return "", err
	}

	n, err := l.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 || int64(n) > maxStringLen {
		return "", fmt.Errorf("%w: implausible link count %d", ErrShortRead, n)
	}
	link.ids = make([]uint64, n)
	for i := range link.ids {
		if link.ids[i], err = l.ReadUint64(); err != nil {
			return "", err
		}
	}
	return name, nil
}

// Resolve maps a saved identifier to its constructed object. Identifier
// 0 is the nil reference. An unknown identifier resolves to nil, or
// fails in strict mode.
func (l *Loader) Resolve(id uint64) (Serializable, error) {
	if id == 0 {
		return nil, nil
	}
	if link, ok := l.byID[id]; ok {
		return link.Object, nil
	}
	if l.strict {
		return nil, fmt.Errorf("%w: identifier %d", ErrDanglingReference, id)
	}
	return nil, nil
}

// ResolveNext consumes the next identifier from link's child list, in
// the order the saver wrote them, and resolves it.
func (l *Loader) ResolveNext(link *Link) (Serializable, error) {
	if link.next >= len(link.ids) {
		return nil, ErrLinkExhausted
	}
	id := link.ids[link.next]
	link.next++
	return l.Resolve(id)
}

// ReadString reads a uint32-length-prefixed string.
func (l *Loader) ReadString() (string, error) {
	n, err := l.ReadUint32()
	if err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("%w: implausible string length %d", ErrShortRead, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(l.r, buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	return string(buf), nil
}

// ReadBytes reads exactly n raw bytes.
func (l *Loader) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(l.r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	return buf, nil
}

// ReadUint64 reads a little-endian uint64.
func (l *Loader) ReadUint64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(l.r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// ReadUint32 reads a little-endian uint32.
func (l *Loader) ReadUint32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(l.r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadInt32 reads a little-endian int32.
func (l *Loader) ReadInt32() (int32, error) {
	v, err := l.ReadUint32()
	return int32(v), err
}
