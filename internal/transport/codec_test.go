package transport

import (
	"bytes"
	"testing"

	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/mechcore/firecontrol/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T, name string, threshold int) *Codec {
	t.Helper()
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	c, err := NewCodec(reg, name, threshold, 0)
	require.NoError(t, err)
	return c
}

func TestRegistry(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"cbor", "json"}, reg.Names())

	m, err := reg.Get(TypeCBOR)
	require.NoError(t, err)
	assert.Equal(t, "cbor", m.Name())

	_, err = reg.Get(9)
	require.ErrorIs(t, err, ErrUnknownMarshaller)
	_, err = reg.ByName("msgpack")
	require.ErrorIs(t, err, ErrUnknownMarshaller)

	require.Error(t, reg.Register(JSON{}))
}

func TestCodec_RoundTrip(t *testing.T) {
	hex := core.Hex{Q: 3, R: -1}
	decl := core.Declaration{ID: "d-1", Attacker: 4, Weapon: 2, TargetHex: &hex, Phase: 3, Aim: core.AimTargetingComputer}

	for _, name := range []string{"json", "cbor"} {
		for _, threshold := range []int{0, 1} {
			c := newCodec(t, name, threshold)

			pkt, err := c.Packet(protocol.DeclareAttack, protocol.DeclareAttackPayload{Declaration: decl})
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, c.Write(&buf, pkt))
			assert.Equal(t, threshold > 0, buf.Bytes()[0] == 1, "%s threshold %d", name, threshold)

			msg, err := c.Read(&buf)
			require.NoError(t, err)
			assert.Equal(t, protocol.DeclareAttack, msg.Command())
			assert.Equal(t, name, msg.Marshaller.Name())

			var got protocol.DeclareAttackPayload
			require.NoError(t, msg.Decode(&got))
			assert.Equal(t, decl, got.Declaration)
		}
	}
}

func TestCodec_ReadsAnyRegisteredType(t *testing.T) {
	writer := newCodec(t, "cbor", 0)
	reader := newCodec(t, "json", 0)

	pkt, err := writer.Packet(protocol.Phase, protocol.PhasePayload{Phase: 5})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, writer.Write(&buf, pkt))

	msg, err := reader.Read(&buf)
	require.NoError(t, err)
	var got protocol.PhasePayload
	require.NoError(t, msg.Decode(&got))
	assert.Equal(t, 5, got.Phase)
}

func TestCodec_UnknownMarshaller(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, 42, []byte("{}"), false, 0))

	_, err := newCodec(t, "json", 0).Read(&buf)
	require.ErrorIs(t, err, ErrUnknownMarshaller)
}

func TestCodec_EmptyPayload(t *testing.T) {
	c := newCodec(t, "json", 0)
	pkt, err := c.Packet(protocol.GetUnits, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.Write(&buf, pkt))
	msg, err := c.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, protocol.GetUnits, msg.Command())

	var v protocol.UnitsPayload
	require.Error(t, msg.Decode(&v))
}

func TestNewCodec_Unknown(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	_, err = NewCodec(reg, "xml", 0, 0)
	require.ErrorIs(t, err, ErrUnknownMarshaller)
}
