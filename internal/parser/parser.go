// Package parser turns packet payloads into validated core values. It does
// no game lookups; handlers check the values against game state.
package parser

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mechcore/firecontrol/internal/catalog"
)

// ErrInvalid marks a payload that decoded but failed validation.
var ErrInvalid = errors.New("invalid payload")

// Decoder is anything that can unmarshal a packet payload, such as a
// dispatcher event or a transport message.
type Decoder interface {
	Decode(v any) error
}

// Parser provides payload -> core struct conversion.
// Its only dependencies are a logger and the equipment catalog.
type Parser struct {
	logger  *slog.Logger
	catalog *catalog.Catalog
}

// NewParser creates a parser. cat may be nil, which skips mode checks
// against the catalog.
func NewParser(logger *slog.Logger, cat *catalog.Catalog) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger, catalog: cat}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func decode(d Decoder, v any) error {
	if err := d.Decode(v); err != nil {
		return fmt.Errorf("error decoding payload: %w", err)
	}
	return nil
}
