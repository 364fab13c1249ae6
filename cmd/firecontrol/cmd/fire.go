package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mechcore/firecontrol/internal/client"
	"github.com/mechcore/firecontrol/internal/config"
	"github.com/mechcore/firecontrol/internal/geo"
	"github.com/mechcore/firecontrol/internal/transport"
	"github.com/mechcore/firecontrol/pkg/core"
)

var fireFlags struct {
	address   string
	wsURL     string
	name      string
	owner     int
	attacker  int
	weapon    int
	ammo      int
	target    int
	targetHex string
	aim       string
	location  string
	spotter   int
	indirect  bool
	mode      string
	endPhase  bool
	timeout   time.Duration
}

var fireCmd = &cobra.Command{
	Use:   "fire",
	Short: "Connect to a server and declare an attack",
	Long: `Connect to a running server as a player, declare one weapon attack and
optionally end the phase to see it resolved.

Examples:
  firecontrol fire --attacker 1 --weapon 0 --target 2 --end-phase
  firecontrol fire --attacker 1 --weapon 3 --target-hex 4,2 --owner 1
  firecontrol fire --ws ws://localhost:7521/ws --attacker 1 --weapon 1 --mode ultra`,
	RunE: runFire,
}

func init() {
	f := fireCmd.Flags()
	f.StringVar(&fireFlags.address, "address", "", "server TCP address (default server.address)")
	f.StringVar(&fireFlags.wsURL, "ws", "", "connect over WebSocket to this url instead of TCP")
	f.StringVar(&fireFlags.name, "name", "fire-cli", "player name sent in hello")
	f.IntVar(&fireFlags.owner, "owner", 0, "player number; 0 skips ownership checks")
	f.IntVar(&fireFlags.attacker, "attacker", 0, "attacking unit id")
	f.IntVar(&fireFlags.weapon, "weapon", 0, "weapon slot")
	f.IntVar(&fireFlags.ammo, "ammo", -1, "ammo bin slot (default the linked bin)")
	f.IntVar(&fireFlags.target, "target", 0, "target unit id")
	f.StringVar(&fireFlags.targetHex, "target-hex", "", "target hex as q,r")
	f.StringVar(&fireFlags.aim, "aim", "", "aimed shot: targeting_computer or immobile")
	f.StringVar(&fireFlags.location, "aim-location", "", "location for an aimed shot")
	f.IntVar(&fireFlags.spotter, "spotter", 0, "spotting unit for indirect fire")
	f.BoolVar(&fireFlags.indirect, "indirect", false, "fire indirectly")
	f.StringVar(&fireFlags.mode, "mode", "", "switch the weapon to this mode instead of firing")
	f.BoolVar(&fireFlags.endPhase, "end-phase", false, "end the phase after declaring")
	f.DurationVar(&fireFlags.timeout, "timeout", 30*time.Second, "give up after this long")
	rootCmd.AddCommand(fireCmd)
}

func runFire(cmd *cobra.Command, args []string) error {
	a, err := newApp("fire")
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), fireFlags.timeout)
	defer cancel()

	tc := config.GetTransportConfig()
	reg, err := transport.DefaultRegistry()
	if err != nil {
		return err
	}
	codec, err := transport.NewCodec(reg, tc.Marshaller, tc.CompressThreshold, tc.MaxFrameSize)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	opts := client.Options{
		Name:      fireFlags.name,
		Owner:     fireFlags.owner,
		Codec:     codec,
		Logger:    a.log,
		OnResult:  func(r core.AttackResult) { printResult(w, r) },
		OnReports: func(rs []core.Report) { printReports(w, rs) },
	}

	var c *client.Client
	if fireFlags.wsURL != "" {
		c, err = client.DialWebSocket(ctx, fireFlags.wsURL, opts)
	} else {
		addr := fireFlags.address
		if addr == "" {
			addr = config.GetServerConfig().Address
		}
		c, err = client.Dial(ctx, addr, opts)
	}
	if err != nil {
		return err
	}
	defer c.Close()

	hello, err := c.Hello(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "connected to %s, session %s, phase %d\n", hello.Name, hello.Session, hello.Phase)

	if fireFlags.mode != "" {
		if err := c.SetMode(ctx, core.EntityID(fireFlags.attacker), fireFlags.weapon, fireFlags.mode); err != nil {
			return err
		}
		fmt.Fprintf(w, "unit %d slot %d switches to %s next phase\n", fireFlags.attacker, fireFlags.weapon, fireFlags.mode)
		return nil
	}

	decl, err := fireDeclaration()
	if err != nil {
		return err
	}
	accepted, err := c.Declare(ctx, decl)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "declared %s for phase %d\n", accepted.ID, accepted.Phase)

	if !fireFlags.endPhase {
		return nil
	}
	next, err := c.EndPhase(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "phase %d open\n", next)
	return nil
}

func fireDeclaration() (core.Declaration, error) {
	d := core.Declaration{
		Attacker:    core.EntityID(fireFlags.attacker),
		Weapon:      fireFlags.weapon,
		Target:      core.EntityID(fireFlags.target),
		Aim:         core.AimMode(fireFlags.aim),
		AimLocation: fireFlags.location,
		Spotter:     core.EntityID(fireFlags.spotter),
		Indirect:    fireFlags.indirect,
	}
	if fireFlags.ammo >= 0 {
		slot := fireFlags.ammo
		d.AmmoSlot = &slot
	}
	if fireFlags.targetHex != "" {
		h, err := geo.HexFromString(fireFlags.targetHex)
		if err != nil {
			return d, fmt.Errorf("--target-hex %q: %w", fireFlags.targetHex, err)
		}
		d.TargetHex = &h
	}
	return d, nil
}
