package transport

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Marshalling type tags carried in every frame header.
const (
	TypeJSON uint32 = 0
	TypeCBOR uint32 = 1
)

// Marshaller encodes packets for one marshalling type.
type Marshaller interface {
	Type() uint32
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is the default marshaller.
type JSON struct{}

func (JSON) Type() uint32                       { return TypeJSON }
func (JSON) Name() string                       { return "json" }
func (JSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// CBOR is the compact binary marshaller.
type CBOR struct {
	enc cbor.EncMode
}

// NewCBOR creates a CBOR marshaller with canonical encoding so equal values
// produce equal bytes.
func NewCBOR() (*CBOR, error) {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor enc mode: %w", err)
	}
	return &CBOR{enc: enc}, nil
}

func (c *CBOR) Type() uint32                       { return TypeCBOR }
func (c *CBOR) Name() string                       { return "cbor" }
func (c *CBOR) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c *CBOR) Unmarshal(data []byte, v any) error { return cbor.Unmarshal(data, v) }

// Registry maps marshalling types to marshallers.
type Registry struct {
	mu     sync.RWMutex
	byType map[uint32]Marshaller
	byName map[string]Marshaller
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[uint32]Marshaller),
		byName: make(map[string]Marshaller),
	}
}

// DefaultRegistry returns a registry holding JSON and CBOR.
func DefaultRegistry() (*Registry, error) {
	c, err := NewCBOR()
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	if err := r.Register(JSON{}); err != nil {
		return nil, err
	}
	if err := r.Register(c); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds m. A type or name may be registered once.
func (r *Registry) Register(m Marshaller) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byType[m.Type()]; dup {
		return fmt.Errorf("marshalling type %d already registered", m.Type())
	}
	if _, dup := r.byName[m.Name()]; dup {
		return fmt.Errorf("marshaller %q already registered", m.Name())
	}
	r.byType[m.Type()] = m
	r.byName[m.Name()] = m
	return nil
}

// Get returns the marshaller for a type tag.
func (r *Registry) Get(t uint32) (Marshaller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byType[t]
	if !ok {
		return nil, fmt.Errorf("%w: type %d", ErrUnknownMarshaller, t)
	}
	return m, nil
}

// ByName returns the marshaller registered under name.
func (r *Registry) ByName(name string) (Marshaller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMarshaller, name)
	}
	return m, nil
}

// Names returns the registered marshaller names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
