package influx

import (
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/mechcore/firecontrol/internal/model"
	"github.com/mechcore/firecontrol/pkg/core"
)

// AttackPoint describes one resolved attack.
func AttackPoint(session string, res core.AttackResult, at time.Time) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement("attack").
		AddTag("session", session).
		AddTag("handler", res.Handler).
		AddTag("weapon", res.Weapon).
		AddTag("state", res.ToHitState).
		AddField("phase", res.Phase).
		AddField("attacker", int(res.Attacker)).
		AddField("target", int(res.Target)).
		AddField("to_hit", res.ToHit).
		AddField("roll", res.Roll).
		AddField("hit", res.Hit).
		AddField("hits", res.Hits).
		AddField("damage", res.Damage).
		AddField("shots", res.ShotsFired).
		AddField("jammed", res.Jammed).
		AddField("aborted", res.Aborted).
		SetTime(at)
	if res.Aborted {
		p.AddTag("reason", res.Reason)
	}
	return p
}

// PhasePoint summarizes a resolved firing phase.
func PhasePoint(session string, phase, attacks, aborted, damage int, took time.Duration, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement("phase").
		AddTag("session", session).
		AddField("phase", phase).
		AddField("attacks", attacks).
		AddField("aborted", aborted).
		AddField("damage", damage).
		AddField("duration_ms", float64(took.Microseconds())/1000).
		SetTime(at)
}

// PerformancePoint carries one monitor sample.
func PerformancePoint(sample model.PerformanceSample) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement("performance").
		AddTag("session", sample.SessionID).
		AddField("phase", sample.Phase).
		AddField("pending_attacks", sample.PendingAttacks).
		AddField("connections", sample.Connections).
		AddField("last_resolve_ms", sample.LastResolveDurationMs).
		SetTime(sample.Time)
}
