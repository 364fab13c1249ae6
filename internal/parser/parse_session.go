package parser

import (
	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/mechcore/firecontrol/pkg/protocol"
)

// ParseHello parses a hello payload and checks the protocol version.
func (p *Parser) ParseHello(d Decoder) (protocol.HelloPayload, error) {
	var hello protocol.HelloPayload
	if err := decode(d, &hello); err != nil {
		return hello, err
	}
	if hello.Name == "" {
		return hello, invalid("hello without a name")
	}
	if hello.Version != protocol.Version {
		return hello, invalid("protocol version %d, want %d", hello.Version, protocol.Version)
	}
	return hello, nil
}

// ParseSetMode parses a set_mode payload. With a catalog, the mode must be
// one some weapon supports.
func (p *Parser) ParseSetMode(d Decoder) (protocol.SetModePayload, error) {
	var m protocol.SetModePayload
	if err := decode(d, &m); err != nil {
		return m, err
	}
	if m.Unit <= 0 {
		return m, invalid("unit id %d", m.Unit)
	}
	if m.Slot < 0 {
		return m, invalid("slot %d", m.Slot)
	}
	if m.Mode != "" && p.catalog != nil && !p.knownMode(m.Mode) {
		return m, invalid("unknown mode %q", m.Mode)
	}
	return m, nil
}

func (p *Parser) knownMode(mode string) bool {
	for _, name := range p.catalog.WeaponNames() {
		w, err := p.catalog.Weapon(name)
		if err == nil && w.SupportsMode(mode) {
			return true
		}
	}
	return false
}

// ParseUnits parses a units payload.
func (p *Parser) ParseUnits(d Decoder) (protocol.UnitsPayload, error) {
	var u protocol.UnitsPayload
	if err := decode(d, &u); err != nil {
		return u, err
	}
	for _, s := range u.Units {
		if s.UnitID <= 0 {
			return u, invalid("unit id %d", s.UnitID)
		}
	}
	return u, nil
}

// ParseAttackResult parses an attack_result payload.
func (p *Parser) ParseAttackResult(d Decoder) (core.AttackResult, error) {
	var r protocol.AttackResultPayload
	if err := decode(d, &r); err != nil {
		return core.AttackResult{}, err
	}
	if r.Result.DeclarationID == "" {
		return r.Result, invalid("attack result without a declaration id")
	}
	return r.Result, nil
}

// ParseReports parses a reports payload. Entries must be in sequence order.
func (p *Parser) ParseReports(d Decoder) ([]core.Report, error) {
	var r protocol.ReportsPayload
	if err := decode(d, &r); err != nil {
		return nil, err
	}
	for i := 1; i < len(r.Reports); i++ {
		if r.Reports[i].Seq <= r.Reports[i-1].Seq {
			return nil, invalid("report %d out of order", r.Reports[i].Seq)
		}
	}
	return r.Reports, nil
}

// ParsePhase parses a phase payload.
func (p *Parser) ParsePhase(d Decoder) (int, error) {
	var ph protocol.PhasePayload
	if err := decode(d, &ph); err != nil {
		return 0, err
	}
	if ph.Phase < 1 {
		return 0, invalid("phase %d", ph.Phase)
	}
	return ph.Phase, nil
}

// ParseError parses an error payload.
func (p *Parser) ParseError(d Decoder) (protocol.ErrorPayload, error) {
	var e protocol.ErrorPayload
	if err := decode(d, &e); err != nil {
		return e, err
	}
	return e, nil
}
