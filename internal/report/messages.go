package report

// Message ids. Texts are fmt templates.
const (
	MsgAttack          = 3100
	MsgCannotFire      = 3105
	MsgToHit           = 3110
	MsgToHitSentinel   = 3111
	MsgRoll            = 3115
	MsgMiss            = 3120
	MsgHit             = 3125
	MsgGlancing        = 3126
	MsgDirectBlow      = 3127
	MsgClusterHits     = 3130
	MsgAMS             = 3131
	MsgJammed          = 3135
	MsgStreakNoLock    = 3140
	MsgHitLocation     = 3145
	MsgInfantryDamage  = 3150
	MsgAreaHex         = 3155
	MsgFlare           = 3160
	MsgSmoke           = 3165
	MsgAmmoSpent       = 3170
	MsgAttackAborted   = 3190
	MsgArmorDamage     = 6100
	MsgStructureDamage = 6105
	MsgLocationLost    = 6110
	MsgTransfer        = 6115
	MsgCriticalCheck   = 6120
	MsgCritWeapon      = 6125
	MsgCritAmmo        = 6130
	MsgCritSensors     = 6135
	MsgCritEngine      = 6140
	MsgCritActuator    = 6145
	MsgUnitDestroyed   = 6150
	MsgBuildingDamage  = 6160
	MsgWoodsCleared    = 6165
	MsgTroopersLost    = 6170
	MsgPhase           = 1000
)

var messages = map[int]string{
	MsgPhase:           "-- firing phase %d --",
	MsgAttack:          "%s fires %s at %s",
	MsgCannotFire:      "cannot fire: %s",
	MsgToHit:           "needs %d, %s",
	MsgToHitSentinel:   "%s: %s",
	MsgRoll:            "rolls %s",
	MsgMiss:            "misses",
	MsgHit:             "hits",
	MsgGlancing:        "glancing blow, damage halved",
	MsgDirectBlow:      "direct blow, +%d damage",
	MsgClusterHits:     "%d of %d hit (cluster roll %d)",
	MsgAMS:             "anti-missile system intercepts %d",
	MsgJammed:          "weapon jams",
	MsgStreakNoLock:    "no lock, weapon does not fire",
	MsgHitLocation:     "%d damage to %s",
	MsgInfantryDamage:  "%d troopers hit",
	MsgAreaHex:         "shell bursts in hex %s",
	MsgFlare:           "hex %s illuminated",
	MsgSmoke:           "smoke fills hex %s",
	MsgAmmoSpent:       "%d shots spent, %d left",
	MsgAttackAborted:   "attack aborted: %s",
	MsgArmorDamage:     "%s armor takes %d, %d left",
	MsgStructureDamage: "%s structure takes %d, %d left",
	MsgLocationLost:    "%s destroyed",
	MsgTransfer:        "%d damage transfers to %s",
	MsgCriticalCheck:   "critical check rolls %s: %d critical hits",
	MsgCritWeapon:      "critical hit on %s",
	MsgCritAmmo:        "%s explodes for %d damage",
	MsgCritSensors:     "sensors hit",
	MsgCritEngine:      "engine hit (%d)",
	MsgCritActuator:    "%s actuator hit",
	MsgUnitDestroyed:   "%s destroyed: %s",
	MsgBuildingDamage:  "building in hex %s takes %d, %d left",
	MsgWoodsCleared:    "woods in hex %s reduced to %s",
	MsgTroopersLost:    "%d troopers lost, %d left",
}

// Template returns the text template for a message id.
func Template(id int) (string, bool) {
	s, ok := messages[id]
	return s, ok
}
