package convert

import (
	"encoding/json"

	"github.com/mechcore/firecontrol/internal/model"
	"github.com/mechcore/firecontrol/pkg/core"
)

// SessionToCore converts a GORM Session to a core.Session.
func SessionToCore(s model.Session) core.Session {
	var opts map[string]any
	if len(s.Options) > 0 {
		_ = json.Unmarshal(s.Options, &opts)
	}
	if len(opts) == 0 {
		opts = nil
	}
	return core.Session{
		ID:        s.ID,
		Name:      s.Name,
		Seed:      uint64(s.Seed),
		Options:   opts,
		StartTime: s.StartTime,
		Tag:       s.Tag,
	}
}

// AttackToCore converts a GORM Attack to a core.AttackResult.
// Positions are rebuilt from the axial columns.
func AttackToCore(a model.Attack) core.AttackResult {
	var mods []core.Modifier
	if len(a.Modifiers) > 0 {
		_ = json.Unmarshal(a.Modifiers, &mods)
	}
	var dist []core.Hit
	if len(a.Distribution) > 0 {
		_ = json.Unmarshal(a.Distribution, &dist)
	}
	if len(mods) == 0 {
		mods = nil
	}
	if len(dist) == 0 {
		dist = nil
	}

	r := core.AttackResult{
		DeclarationID: a.DeclarationID,
		Phase:         a.Phase,
		Attacker:      core.EntityID(a.AttackerID),
		Target:        core.EntityID(a.TargetID),
		Weapon:        a.Weapon,
		Handler:       a.Handler,
		ToHit:         a.ToHit,
		ToHitState:    a.ToHitState,
		Modifiers:     mods,
		Roll:          a.Roll,
		Margin:        a.Margin,
		Hit:           a.Hit,
		Glancing:      a.Glancing,
		Hits:          a.Hits,
		Distribution:  dist,
		Damage:        a.Damage,
		ShotsFired:    a.ShotsFired,
		Jammed:        a.Jammed,
		Aborted:       a.Aborted,
		Reason:        a.Reason,
		AttackerPos:   core.Hex{Q: a.AttackerQ, R: a.AttackerR},
		TargetPos:     core.Hex{Q: a.TargetQ, R: a.TargetR},
	}
	if a.HexTarget {
		h := r.TargetPos
		r.TargetHex = &h
	}
	return r
}

// ReportToCore converts a GORM Report to a core.Report.
func ReportToCore(r model.Report) core.Report {
	return core.Report{
		Seq:       r.Seq,
		Phase:     r.Phase,
		Attack:    r.AttackID,
		Subject:   core.EntityID(r.SubjectID),
		MessageID: r.MessageID,
		Indent:    r.Indent,
		Text:      r.Text,
	}
}

// UnitStateToCore converts a GORM UnitState to a core.UnitState.
func UnitStateToCore(s model.UnitState) core.UnitState {
	var locs []core.Location
	if len(s.Locations) > 0 {
		_ = json.Unmarshal(s.Locations, &locs)
	}
	var equip []core.Mounted
	if len(s.Equipment) > 0 {
		_ = json.Unmarshal(s.Equipment, &equip)
	}
	if len(locs) == 0 {
		locs = nil
	}
	if len(equip) == 0 {
		equip = nil
	}
	return core.UnitState{
		UnitID:    core.EntityID(s.UnitID),
		Name:      s.Name,
		Phase:     s.Phase,
		Time:      s.Time,
		Position:  core.Hex{Q: s.Q, R: s.R},
		Heat:      s.Heat,
		Armor:     s.Armor,
		Structure: s.Structure,
		Destroyed: s.Destroyed,
		Locations: locs,
		Equipment: equip,
	}
}
