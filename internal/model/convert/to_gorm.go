// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"time"

	"github.com/mechcore/firecontrol/internal/geo"
	"github.com/mechcore/firecontrol/internal/model"
	"github.com/mechcore/firecontrol/pkg/core"
	"gorm.io/datatypes"
)

// toJSON marshals v for a jsonb column, falling back to empty.
func toJSON(v any, empty string) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON(empty)
	}
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
func CoreToSession(s core.Session) model.Session {
	return model.Session{
		ID:        s.ID,
		Name:      s.Name,
		Seed:      int64(s.Seed),
		Options:   toJSON(s.Options, "{}"),
		StartTime: s.StartTime,
		Tag:       s.Tag,
	}
}

// CoreToAttack converts a core.AttackResult to a GORM model.Attack.
// Hex positions are kept both as axial coordinates and as board points.
func CoreToAttack(sessionID string, r core.AttackResult, at time.Time) model.Attack {
	return model.Attack{
		DeclarationID: r.DeclarationID,
		SessionID:     sessionID,
		Time:          at,
		Phase:         r.Phase,
		AttackerID:    int(r.Attacker),
		TargetID:      int(r.Target),
		HexTarget:     r.TargetHex != nil,
		Weapon:        r.Weapon,
		Handler:       r.Handler,
		ToHit:         r.ToHit,
		ToHitState:    r.ToHitState,
		Modifiers:     toJSON(r.Modifiers, "[]"),
		Roll:          r.Roll,
		Margin:        r.Margin,
		Hit:           r.Hit,
		Glancing:      r.Glancing,
		Hits:          r.Hits,
		Distribution:  toJSON(r.Distribution, "[]"),
		Damage:        r.Damage,
		ShotsFired:    r.ShotsFired,
		Jammed:        r.Jammed,
		Aborted:       r.Aborted,
		Reason:        r.Reason,
		AttackerQ:     r.AttackerPos.Q,
		AttackerR:     r.AttackerPos.R,
		AttackerPos:   geo.Point(r.AttackerPos),
		TargetQ:       r.TargetPos.Q,
		TargetR:       r.TargetPos.R,
		TargetPos:     geo.Point(r.TargetPos),
	}
}

// CoreToReport converts a core.Report to a GORM model.Report.
func CoreToReport(sessionID string, r core.Report, at time.Time) model.Report {
	return model.Report{
		SessionID: sessionID,
		Time:      at,
		Seq:       r.Seq,
		Phase:     r.Phase,
		AttackID:  r.Attack,
		SubjectID: int(r.Subject),
		MessageID: r.MessageID,
		Indent:    r.Indent,
		Text:      r.Text,
	}
}

// CoreToUnitState converts a core.UnitState to a GORM model.UnitState.
func CoreToUnitState(sessionID string, s core.UnitState) model.UnitState {
	return model.UnitState{
		SessionID: sessionID,
		UnitID:    int(s.UnitID),
		Name:      s.Name,
		Phase:     s.Phase,
		Time:      s.Time,
		Q:         s.Position.Q,
		R:         s.Position.R,
		Position:  geo.Point(s.Position),
		Heat:      s.Heat,
		Armor:     s.Armor,
		Structure: s.Structure,
		Destroyed: s.Destroyed,
		Locations: toJSON(s.Locations, "[]"),
		Equipment: toJSON(s.Equipment, "[]"),
	}
}
