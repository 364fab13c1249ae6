package transport

import (
	"fmt"
	"io"

	"github.com/mechcore/firecontrol/pkg/protocol"
)

// DefaultCompressThreshold is the payload size from which frames are gzipped.
const DefaultCompressThreshold = 1024

// Codec turns packets into frames and back.
type Codec struct {
	Registry  *Registry
	Default   Marshaller
	Threshold int
	MaxFrame  int
}

// NewCodec creates a codec writing with the named marshaller.
func NewCodec(reg *Registry, marshaller string, threshold, maxFrame int) (*Codec, error) {
	m, err := reg.ByName(marshaller)
	if err != nil {
		return nil, err
	}
	return &Codec{Registry: reg, Default: m, Threshold: threshold, MaxFrame: maxFrame}, nil
}

// Message is a decoded packet together with the marshaller that carried it,
// so the payload can be decoded the same way.
type Message struct {
	Packet     protocol.Packet
	Marshaller Marshaller
}

// Command returns the packet command.
func (m Message) Command() string { return m.Packet.Command }

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if len(m.Packet.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", m.Packet.Command)
	}
	if err := m.Marshaller.Unmarshal(m.Packet.Payload, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", m.Packet.Command, err)
	}
	return nil
}

// Packet builds a packet for command with payload encoded by the default
// marshaller. A nil payload leaves it empty.
func (c *Codec) Packet(command string, payload any) (protocol.Packet, error) {
	p := protocol.Packet{Command: command}
	if payload == nil {
		return p, nil
	}
	data, err := c.Default.Marshal(payload)
	if err != nil {
		return protocol.Packet{}, fmt.Errorf("%s: encode payload: %w", command, err)
	}
	p.Payload = data
	return p, nil
}

// Write frames and writes one packet.
func (c *Codec) Write(w io.Writer, p protocol.Packet) error {
	data, err := c.Default.Marshal(p)
	if err != nil {
		return fmt.Errorf("%s: encode packet: %w", p.Command, err)
	}
	compress := c.Threshold > 0 && len(data) >= c.Threshold
	return WriteFrame(w, c.Default.Type(), data, compress, c.MaxFrame)
}

// Read reads and decodes one packet.
func (c *Codec) Read(r io.Reader) (Message, error) {
	f, err := ReadFrame(r, c.MaxFrame)
	if err != nil {
		return Message{}, err
	}
	m, err := c.Registry.Get(f.Type)
	if err != nil {
		return Message{}, err
	}
	var p protocol.Packet
	if err := m.Unmarshal(f.Payload, &p); err != nil {
		return Message{}, fmt.Errorf("%w: decode packet: %w", ErrBadFrame, err)
	}
	return Message{Packet: p, Marshaller: m}, nil
}
