package parser

import (
	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/mechcore/firecontrol/pkg/protocol"
)

// ParseDeclaration parses a declare_attack payload. Any client supplied id
// is dropped; the resolver assigns one.
func (p *Parser) ParseDeclaration(d Decoder) (core.Declaration, error) {
	var payload protocol.DeclareAttackPayload
	if err := decode(d, &payload); err != nil {
		return core.Declaration{}, err
	}
	decl := payload.Declaration
	decl.ID = ""

	if decl.Attacker <= 0 {
		return decl, invalid("attacker id %d", decl.Attacker)
	}
	if decl.Weapon < 0 {
		return decl, invalid("weapon slot %d", decl.Weapon)
	}
	if decl.AmmoSlot != nil && *decl.AmmoSlot < 0 {
		return decl, invalid("ammo slot %d", *decl.AmmoSlot)
	}

	switch {
	case decl.Target != 0 && decl.TargetHex != nil:
		return decl, invalid("both a unit and a hex targeted")
	case decl.Target == 0 && decl.TargetHex == nil:
		return decl, invalid("no target")
	case decl.Target < 0:
		return decl, invalid("target id %d", decl.Target)
	case decl.Target == decl.Attacker:
		return decl, invalid("unit %d cannot target itself", decl.Attacker)
	}

	switch decl.Aim {
	case core.AimNone:
		if decl.AimLocation != "" {
			return decl, invalid("aim location without an aimed shot")
		}
	case core.AimTargetingComputer, core.AimImmobile:
		if decl.AimLocation == "" {
			return decl, invalid("aimed shot needs a location")
		}
		if decl.TargetHex != nil {
			return decl, invalid("aimed shot at a hex")
		}
	default:
		return decl, invalid("unknown aim mode %q", decl.Aim)
	}

	if decl.Spotter != 0 && !decl.Indirect {
		return decl, invalid("spotter on a direct attack")
	}
	if decl.Spotter == decl.Attacker && decl.Spotter != 0 {
		return decl, invalid("unit %d cannot spot for itself", decl.Attacker)
	}

	p.logger.Debug("Parsed declaration",
		"attacker", decl.Attacker,
		"weapon", decl.Weapon,
		"target", decl.Target,
		"indirect", decl.Indirect)
	return decl, nil
}
