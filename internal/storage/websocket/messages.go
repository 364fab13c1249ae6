package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/mechcore/firecontrol/pkg/core"
)

// Envelope types. The server acks the two session messages and nothing else.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeAttack       = "attack"
	TypeReports      = "reports"
	TypeUnitState    = "unit_state"
)

// Envelope is one text frame on the results stream.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is {"type":"ack","for":<envelope type>}.
type AckMessage struct {
	Type string `json:"type"`
	For  string `json:"for"`
}

type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

type ReportsPayload struct {
	Reports []core.Report `json:"reports"`
}

func encode(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err == nil {
		var frame []byte
		if frame, err = json.Marshal(Envelope{Type: kind, Payload: raw}); err == nil {
			return frame, nil
		}
	}
	return nil, fmt.Errorf("encode %s: %w", kind, err)
}
