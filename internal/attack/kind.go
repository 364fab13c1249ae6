package attack

import "github.com/mechcore/firecontrol/internal/catalog"

// Kind names the resolution strategy of an attack.
type Kind string

const (
	KindStandard            Kind = "standard"
	KindPulse               Kind = "pulse"
	KindVariableSpeedPulse  Kind = "variable_speed_pulse"
	KindClusterMissile      Kind = "cluster_missile"
	KindStreak              Kind = "streak"
	KindLBXCluster          Kind = "lbx_cluster"
	KindUltra               Kind = "ultra"
	KindRotary              Kind = "rotary"
	KindMortar              Kind = "mortar"
	KindMortarAirburst      Kind = "mortar_airburst"
	KindMortarAntiPersonnel Kind = "mortar_anti_personnel"
	KindMortarFlare         Kind = "mortar_flare"
	KindMortarSmoke         Kind = "mortar_smoke"
	KindAntiMissile         Kind = "anti_missile"
)

// Select picks the handler kind for a weapon and its loaded ammo.
func Select(w catalog.Weapon, ammo *catalog.Ammo) Kind {
	mun := catalog.MunitionStandard
	if ammo != nil {
		mun = ammo.MunitionOrStandard()
	}
	switch w.Category {
	case catalog.CategoryPulseLaser:
		return KindPulse
	case catalog.CategoryVSPLaser:
		return KindVariableSpeedPulse
	case catalog.CategoryLRM, catalog.CategorySRM, catalog.CategoryMRM:
		return KindClusterMissile
	case catalog.CategoryStreakSRM:
		return KindStreak
	case catalog.CategoryLBX:
		if mun == catalog.MunitionCluster {
			return KindLBXCluster
		}
		return KindStandard
	case catalog.CategoryUltraAC:
		return KindUltra
	case catalog.CategoryRotaryAC:
		return KindRotary
	case catalog.CategoryMortar:
		switch mun {
		case catalog.MunitionAirburst:
			return KindMortarAirburst
		case catalog.MunitionAntiPersonnel:
			return KindMortarAntiPersonnel
		case catalog.MunitionFlare:
			return KindMortarFlare
		case catalog.MunitionSmoke:
			return KindMortarSmoke
		}
		return KindMortar
	case catalog.CategoryAMS:
		return KindAntiMissile
	}
	return KindStandard
}
