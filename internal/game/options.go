package game

import "fmt"

// JamRule decides what an ultra or rotary jam does to the burst.
type JamRule string

const (
	// JamCancelBurst: the jammed burst does no damage and spends no ammo.
	JamCancelBurst JamRule = "cancel-burst"
	// JamSecondShot: the first shot still fires, one round is spent.
	JamSecondShot JamRule = "second-shot"
)

// Options are the optional rules of a game.
type Options struct {
	JamRule       JamRule `json:"jamRule" yaml:"jamRule" mapstructure:"jam_rule"`
	GlancingBlows bool    `json:"glancingBlows" yaml:"glancingBlows" mapstructure:"glancing_blows"`
	DirectBlows   bool    `json:"directBlows" yaml:"directBlows" mapstructure:"direct_blows"`
	IndirectFire  bool    `json:"indirectFire" yaml:"indirectFire" mapstructure:"indirect_fire"`
	AdvancedAMS   bool    `json:"advancedAMS" yaml:"advancedAMS" mapstructure:"advanced_ams"`
}

// DefaultOptions returns the standard rule set.
func DefaultOptions() Options {
	return Options{JamRule: JamCancelBurst, IndirectFire: true}
}

// Validate checks option values.
func (o Options) Validate() error {
	switch o.JamRule {
	case JamCancelBurst, JamSecondShot:
		return nil
	default:
		return fmt.Errorf("unknown jam rule %q", o.JamRule)
	}
}

// AsMap flattens the options for session records.
func (o Options) AsMap() map[string]any {
	return map[string]any{
		"jam_rule":       string(o.JamRule),
		"glancing_blows": o.GlancingBlows,
		"direct_blows":   o.DirectBlows,
		"indirect_fire":  o.IndirectFire,
		"advanced_ams":   o.AdvancedAMS,
	}
}
