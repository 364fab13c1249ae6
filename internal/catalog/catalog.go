// Package catalog holds the static weapon and ammo descriptors the resolution
// engine reads. A Catalog is immutable once loaded and is passed explicitly to
// whatever needs it.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownEquipment is returned for a name missing from the catalog.
var ErrUnknownEquipment = errors.New("unknown equipment")

// ErrIncompatibleAmmo is returned when ammo does not fit a weapon.
var ErrIncompatibleAmmo = errors.New("ammo incompatible with weapon")

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Category is the weapon family used to pick a resolution handler.
type Category string

const (
	CategoryLaser      Category = "laser"
	CategoryPulseLaser Category = "pulse_laser"
	CategoryVSPLaser   Category = "vsp_laser"
	CategoryPPC        Category = "ppc"
	CategoryAutocannon Category = "autocannon"
	CategoryUltraAC    Category = "ultra_ac"
	CategoryRotaryAC   Category = "rotary_ac"
	CategoryLBX        Category = "lbx_ac"
	CategoryGauss      Category = "gauss"
	CategoryMachineGun Category = "machine_gun"
	CategoryLRM        Category = "lrm"
	CategorySRM        Category = "srm"
	CategoryMRM        Category = "mrm"
	CategoryStreakSRM  Category = "streak_srm"
	CategoryMortar     Category = "mortar"
	CategoryAMS        Category = "ams"
	CategoryEquipment  Category = "equipment"
)

// Weapon flags.
const (
	FlagDirectFire        = "direct_fire"
	FlagIndirect          = "indirect"
	FlagOneShot           = "one_shot"
	FlagMinRangeFalloff   = "min_range_falloff"
	FlagArtemisCapable    = "artemis_capable"
	FlagHotLoadable       = "hot_loadable"
	FlagTargetingComputer = "targeting_computer"
)

// Munition is the special sub-type of a loaded ammo bin.
type Munition string

const (
	MunitionStandard      Munition = "standard"
	MunitionCluster       Munition = "cluster"
	MunitionAirburst      Munition = "airburst"
	MunitionAntiPersonnel Munition = "anti_personnel"
	MunitionFlare         Munition = "flare"
	MunitionSmoke         Munition = "smoke"
)

// Bracket is a range band.
type Bracket int

const (
	BracketMinimum Bracket = iota
	BracketShort
	BracketMedium
	BracketLong
	BracketOut
)

func (b Bracket) String() string {
	switch b {
	case BracketMinimum:
		return "minimum"
	case BracketShort:
		return "short"
	case BracketMedium:
		return "medium"
	case BracketLong:
		return "long"
	default:
		return "out of range"
	}
}

// Weapon is the static descriptor of a weapon or fire-control item.
type Weapon struct {
	Name          string   `yaml:"name"`
	Category      Category `yaml:"category"`
	Damage        int      `yaml:"damage"`
	DamageByRange []int    `yaml:"damage_by_range"`
	ToHitByRange  []int    `yaml:"to_hit_by_range"`
	Heat          int      `yaml:"heat"`
	MinRange      int      `yaml:"min_range"`
	Short         int      `yaml:"short"`
	Medium        int      `yaml:"medium"`
	Long          int      `yaml:"long"`
	RackSize      int      `yaml:"rack_size"`
	ToHitMod      int      `yaml:"to_hit"`
	AmmoType      string   `yaml:"ammo_type"`
	Flags         []string `yaml:"flags"`
	Modes         []string `yaml:"modes"`
	InfantryClass string   `yaml:"infantry_class"`
}

// HasFlag reports whether the weapon carries flag.
func (w Weapon) HasFlag(flag string) bool {
	return slices.Contains(w.Flags, flag)
}

// UsesAmmo reports whether the weapon needs a loaded bin to fire.
func (w Weapon) UsesAmmo() bool {
	return w.AmmoType != ""
}

// SupportsMode reports whether mode is valid for the weapon.
func (w Weapon) SupportsMode(mode string) bool {
	return mode == "" || slices.Contains(w.Modes, mode)
}

// IsWeapon reports whether the entry can be declared as an attack.
func (w Weapon) IsWeapon() bool {
	return w.Category != CategoryEquipment && w.Category != CategoryAMS
}

// BracketAt returns the range band for a hex distance.
func (w Weapon) BracketAt(distance int) Bracket {
	switch {
	case distance > w.Long:
		return BracketOut
	case distance > w.Medium:
		return BracketLong
	case distance > w.Short:
		return BracketMedium
	case distance <= w.MinRange && w.MinRange > 0:
		return BracketMinimum
	default:
		return BracketShort
	}
}

// DamageAt returns base damage at a range band. Weapons without a range
// table do their flat damage everywhere.
func (w Weapon) DamageAt(b Bracket) int {
	if len(w.DamageByRange) == 3 {
		switch b {
		case BracketMinimum, BracketShort:
			return w.DamageByRange[0]
		case BracketMedium:
			return w.DamageByRange[1]
		case BracketLong:
			return w.DamageByRange[2]
		}
	}
	return w.Damage
}

// Ammo is the static descriptor of an ammo bin type.
type Ammo struct {
	Name            string   `yaml:"name"`
	AmmoType        string   `yaml:"ammo_type"`
	RackSize        int      `yaml:"rack_size"`
	Munition        Munition `yaml:"munition"`
	Shots           int      `yaml:"shots"`
	ToHitMod        int      `yaml:"to_hit"`
	ExplosionDamage int      `yaml:"explosion_damage"`
	Inert           bool     `yaml:"inert"`
}

// MunitionOrStandard returns the munition, defaulting to standard.
func (a Ammo) MunitionOrStandard() Munition {
	if a.Munition == "" {
		return MunitionStandard
	}
	return a.Munition
}

type document struct {
	Weapons []Weapon `yaml:"weapons"`
	Ammo    []Ammo   `yaml:"ammo"`
}

// Catalog is a read-only set of weapon and ammo descriptors keyed by name.
type Catalog struct {
	weapons map[string]Weapon
	ammo    map[string]Ammo
}

// New builds a catalog from descriptors and validates it.
func New(weapons []Weapon, ammo []Ammo) (*Catalog, error) {
	c := &Catalog{
		weapons: make(map[string]Weapon, len(weapons)),
		ammo:    make(map[string]Ammo, len(ammo)),
	}
	var errs []error
	for _, w := range weapons {
		if _, dup := c.weapons[w.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate weapon %q", w.Name))
		}
		c.weapons[w.Name] = w
	}
	for _, a := range ammo {
		if _, dup := c.ammo[a.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate ammo %q", a.Name))
		}
		if _, clash := c.weapons[a.Name]; clash {
			errs = append(errs, fmt.Errorf("ammo %q shares a name with a weapon", a.Name))
		}
		c.ammo[a.Name] = a
	}
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("catalog validation failed: %w", errors.Join(errs...))
	}
	return c, nil
}

// Load parses a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(doc.Weapons, doc.Ammo)
}

// LoadFile parses a YAML catalog file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(defaultCatalog, &doc); err != nil {
		return nil, fmt.Errorf("parse built-in catalog: %w", err)
	}
	return New(doc.Weapons, doc.Ammo)
}

// Weapon looks up a weapon descriptor.
func (c *Catalog) Weapon(name string) (Weapon, error) {
	w, ok := c.weapons[name]
	if !ok {
		return Weapon{}, fmt.Errorf("%w: weapon %q", ErrUnknownEquipment, name)
	}
	return w, nil
}

// Ammo looks up an ammo descriptor.
func (c *Catalog) Ammo(name string) (Ammo, error) {
	a, ok := c.ammo[name]
	if !ok {
		return Ammo{}, fmt.Errorf("%w: ammo %q", ErrUnknownEquipment, name)
	}
	return a, nil
}

// IsAmmo reports whether name is an ammo bin type.
func (c *Catalog) IsAmmo(name string) bool {
	_, ok := c.ammo[name]
	return ok
}

// Compatible checks that ammo can be loaded into weapon.
func (c *Catalog) Compatible(w Weapon, a Ammo) error {
	if w.AmmoType == "" || w.AmmoType != a.AmmoType || (a.RackSize != 0 && a.RackSize != w.RackSize) {
		return fmt.Errorf("%w: %q in %q", ErrIncompatibleAmmo, a.Name, w.Name)
	}
	return nil
}

// WeaponNames returns all weapon names sorted.
func (c *Catalog) WeaponNames() []string {
	names := make([]string, 0, len(c.weapons))
	for n := range c.weapons {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AmmoNames returns all ammo names sorted.
func (c *Catalog) AmmoNames() []string {
	names := make([]string, 0, len(c.ammo))
	for n := range c.ammo {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks every descriptor. All problems are reported together.
func (c *Catalog) Validate() error {
	var errs []error
	for _, name := range c.WeaponNames() {
		if err := c.weapons[name].Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, name := range c.AmmoNames() {
		a := c.ammo[name]
		if err := a.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate checks a weapon's invariants.
func (w Weapon) Validate() error {
	var errs []error
	if w.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if w.Category == "" {
		errs = append(errs, errors.New("category must not be empty"))
	}
	if w.IsWeapon() {
		if w.Damage <= 0 && len(w.DamageByRange) == 0 {
			errs = append(errs, errors.New("damage must be > 0"))
		}
		if !(w.Short <= w.Medium && w.Medium <= w.Long) || w.Long <= 0 {
			errs = append(errs, fmt.Errorf("range brackets %d/%d/%d not ascending", w.Short, w.Medium, w.Long))
		}
		if w.MinRange < 0 {
			errs = append(errs, errors.New("min range must be >= 0"))
		}
	}
	if len(w.DamageByRange) != 0 && len(w.DamageByRange) != 3 {
		errs = append(errs, errors.New("damage_by_range needs short, medium and long values"))
	}
	if len(w.ToHitByRange) != 0 && len(w.ToHitByRange) != 3 {
		errs = append(errs, errors.New("to_hit_by_range needs short, medium and long values"))
	}
	switch w.Category {
	case CategoryLRM, CategorySRM, CategoryMRM, CategoryStreakSRM, CategoryMortar:
		if w.RackSize <= 0 {
			errs = append(errs, errors.New("missile weapons need a rack size"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("weapon %q: %w", w.Name, errors.Join(errs...))
	}
	return nil
}

// Validate checks an ammo descriptor's invariants.
func (a Ammo) Validate() error {
	var errs []error
	if a.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if a.AmmoType == "" {
		errs = append(errs, errors.New("ammo_type must not be empty"))
	}
	if a.Shots <= 0 {
		errs = append(errs, errors.New("shots must be > 0"))
	}
	switch a.MunitionOrStandard() {
	case MunitionStandard, MunitionCluster, MunitionAirburst, MunitionAntiPersonnel, MunitionFlare, MunitionSmoke:
	default:
		errs = append(errs, fmt.Errorf("unknown munition %q", a.Munition))
	}
	if len(errs) > 0 {
		return fmt.Errorf("ammo %q: %w", a.Name, errors.Join(errs...))
	}
	return nil
}
