package v1

import (
	"sort"
	"time"

	"github.com/mechcore/firecontrol/pkg/core"
)

// SessionData contains all the data needed to build an export
type SessionData struct {
	Session *core.Session
	Units   map[core.EntityID]*UnitRecord
	Attacks []core.AttackResult
	Reports []core.Report
}

// UnitRecord groups a unit's snapshots in recording order
type UnitRecord struct {
	ID     core.EntityID
	Name   string
	States []core.UnitState
}

// Build creates an Export from the session data.
//
// Events are:
//
//	[phase, "hit", attackerId, targetId, weapon, toHit, roll, hits, damage]
//	[phase, "miss", attackerId, targetId, weapon, toHit, roll]
//	[phase, "aborted", attackerId, weapon, reason]
//	[phase, "jammed", attackerId, weapon]
func Build(data *SessionData) Export {
	export := Export{
		Version: FormatVersion,
		Units:   make([]Unit, 0, len(data.Units)),
		Events:  make([][]any, 0, len(data.Attacks)),
		Log:     make([]Line, 0, len(data.Reports)),
	}
	if s := data.Session; s != nil {
		export.SessionID = s.ID
		export.SessionName = s.Name
		export.Tag = s.Tag
		export.Seed = s.Seed
		export.Options = s.Options
		export.StartTime = s.StartTime.UTC().Format(time.RFC3339)
	}

	maxPhase := 0

	ids := make([]core.EntityID, 0, len(data.Units))
	for id := range data.Units {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		record := data.Units[id]
		unit := Unit{
			ID:     int(record.ID),
			Name:   record.Name,
			States: make([][]any, 0, len(record.States)),
		}
		for i, st := range record.States {
			if i == 0 {
				unit.StartPhase = st.Phase
			}
			unit.States = append(unit.States, []any{
				st.Phase,
				[]int{st.Position.Q, st.Position.R},
				st.Heat,
				st.Armor,
				st.Structure,
				boolToInt(st.Destroyed),
			})
			maxPhase = max(maxPhase, st.Phase)
		}
		export.Units = append(export.Units, unit)
	}

	for _, r := range data.Attacks {
		maxPhase = max(maxPhase, r.Phase)
		switch {
		case r.Aborted:
			export.Events = append(export.Events, []any{r.Phase, "aborted", int(r.Attacker), r.Weapon, r.Reason})
			continue
		case r.Hit:
			export.Events = append(export.Events, []any{r.Phase, "hit", int(r.Attacker), int(r.Target), r.Weapon, r.ToHit, r.Roll, r.Hits, r.Damage})
		default:
			export.Events = append(export.Events, []any{r.Phase, "miss", int(r.Attacker), int(r.Target), r.Weapon, r.ToHit, r.Roll})
		}
		if r.Jammed {
			export.Events = append(export.Events, []any{r.Phase, "jammed", int(r.Attacker), r.Weapon})
		}
	}

	for _, r := range data.Reports {
		maxPhase = max(maxPhase, r.Phase)
		export.Log = append(export.Log, Line{
			Seq:    r.Seq,
			Phase:  r.Phase,
			Attack: r.Attack,
			Indent: r.Indent,
			Text:   r.Text,
		})
	}

	export.EndPhase = maxPhase
	return export
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
