package game

import (
	"github.com/mechcore/firecontrol/internal/dice"
	"github.com/mechcore/firecontrol/pkg/core"
)

// Location names.
const (
	LocHead        = "HD"
	LocCenterTorso = "CT"
	LocLeftTorso   = "LT"
	LocRightTorso  = "RT"
	LocLeftArm     = "LA"
	LocRightArm    = "RA"
	LocLeftLeg     = "LL"
	LocRightLeg    = "RL"

	LocFront  = "FRONT"
	LocLeft   = "LEFT"
	LocRight  = "RIGHT"
	LocRear   = "REAR"
	LocTurret = "TURRET"

	LocTroopers = "TROOPERS"
)

// hit tables indexed by 2d6 roll - 2
var (
	mechFront = [11]string{LocCenterTorso, LocRightArm, LocRightArm, LocRightLeg, LocRightTorso, LocCenterTorso, LocLeftTorso, LocLeftLeg, LocLeftArm, LocLeftArm, LocHead}
	mechLeft  = [11]string{LocLeftTorso, LocLeftLeg, LocLeftArm, LocLeftArm, LocLeftLeg, LocLeftTorso, LocCenterTorso, LocRightTorso, LocRightArm, LocRightLeg, LocHead}
	mechRight = [11]string{LocRightTorso, LocRightLeg, LocRightArm, LocRightArm, LocRightLeg, LocRightTorso, LocCenterTorso, LocLeftTorso, LocLeftArm, LocLeftLeg, LocHead}

	vehicleFront = [11]string{LocFront, LocFront, LocFront, LocRight, LocFront, LocFront, LocFront, LocLeft, LocTurret, LocTurret, LocTurret}
	vehicleRear  = [11]string{LocRear, LocRear, LocRear, LocLeft, LocRear, LocRear, LocRear, LocRight, LocTurret, LocTurret, LocTurret}
	vehicleLeft  = [11]string{LocLeft, LocLeft, LocLeft, LocFront, LocLeft, LocLeft, LocLeft, LocRear, LocTurret, LocTurret, LocTurret}
	vehicleRight = [11]string{LocRight, LocRight, LocRight, LocRear, LocRight, LocRight, LocRight, LocFront, LocTurret, LocTurret, LocTurret}
)

var vehicleSideLocation = map[core.Side]string{
	core.SideFront: LocFront,
	core.SideRear:  LocRear,
	core.SideLeft:  LocLeft,
	core.SideRight: LocRight,
}

// HitLocation maps a 2d6 roll to a location on u's table for side.
func HitLocation(u *core.Unit, side core.Side, roll int) core.Hit {
	idx := min(max(roll, 2), 12) - 2
	switch u.Kind {
	case core.KindInfantry:
		return core.Hit{Location: LocTroopers, Target: u.ID}
	case core.KindVehicle:
		table := vehicleFront
		switch side {
		case core.SideRear:
			table = vehicleRear
		case core.SideLeft:
			table = vehicleLeft
		case core.SideRight:
			table = vehicleRight
		}
		h := core.Hit{Location: table[idx], Critical: roll == 2 || roll == 12, Target: u.ID}
		if _, ok := u.Location(h.Location); !ok {
			h.Location = vehicleSideLocation[side]
		}
		return h
	default:
		table := mechFront
		switch side {
		case core.SideLeft:
			table = mechLeft
		case core.SideRight:
			table = mechRight
		}
		h := core.Hit{Location: table[idx], Critical: roll == 2, Target: u.ID}
		if side == core.SideRear {
			h.Rear = isTorso(h.Location)
		}
		return h
	}
}

// RollHitLocation rolls 2d6 on the hit table.
func RollHitLocation(src dice.Source, u *core.Unit, side core.Side) (core.Hit, dice.Roll) {
	r := dice.Roll2D6(src)
	return HitLocation(u, side, r.Total()), r
}

// AimedHitLocation places an aimed shot: a location roll of 6 to 8 hits aim,
// any other roll falls back to the hit table. A rear attack on an aimed
// torso hits its rear armor.
func AimedHitLocation(u *core.Unit, side core.Side, aim string, roll int) core.Hit {
	if _, ok := u.Location(aim); !ok || roll < 6 || roll > 8 {
		return HitLocation(u, side, roll)
	}
	return core.Hit{
		Location: aim,
		Target:   u.ID,
		Rear:     u.Kind == core.KindMech && side == core.SideRear && isTorso(aim),
	}
}

func isTorso(loc string) bool {
	return loc == LocCenterTorso || loc == LocLeftTorso || loc == LocRightTorso
}

// transferTarget returns where excess damage moves from loc.
func transferTarget(kind core.UnitKind, loc string) string {
	if kind != core.KindMech {
		return ""
	}
	switch loc {
	case LocLeftArm, LocLeftLeg:
		return LocLeftTorso
	case LocRightArm, LocRightLeg:
		return LocRightTorso
	case LocLeftTorso, LocRightTorso:
		return LocCenterTorso
	}
	return ""
}
