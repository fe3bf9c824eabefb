package command

import (
	"errors"
	"fmt"

	"darwinawards/cmd/cli/command/client"
	"darwinawards/internal/microservices/http-api/dto"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var dieCmd = &cobra.Command{
	Use:   "die",
	Short: "Report a death of the peer's player",
	Long: `Post a death signal to the local peer. The peer classifies it, picks a
message and broadcasts it to the session.

Example:
  darwinCLI die --attacker Troll --kind creature --blunt 40
  darwinCLI die --swimming`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := signalFromFlags(cmd)

		resp, err := peerClient().PostDeath(req)
		if errors.Is(err, client.ErrNoMessage) {
			color.Yellow("No cause of death could be determined, nothing was broadcast.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to report death: %w", err)
		}

		color.New(color.FgRed).Printf("[%s] ", resp.Category)
		fmt.Println(resp.Text)
		return nil
	},
}

func init() {
	addDeathFlags(dieCmd)
}

func addDeathFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("swimming", false, "player was swimming")
	f.Bool("falling", false, "player was falling")
	f.Bool("freezing", false, "player was freezing")
	f.Bool("woodcutting", false, "killed while cutting a tree")
	f.String("attacker", "", "name of the attacker")
	f.String("kind", "creature", "attacker kind: boss, player or creature")
	for _, d := range damageFlags {
		f.Float64(d, 0, d+" damage of the fatal hit")
	}
}

var damageFlags = []string{"blunt", "pierce", "slash", "fire", "frost", "lightning", "poison"}

func signalFromFlags(cmd *cobra.Command) *dto.DeathSignalRequest {
	f := cmd.Flags()
	req := &dto.DeathSignalRequest{}
	req.Swimming, _ = f.GetBool("swimming")
	req.Falling, _ = f.GetBool("falling")
	req.Freezing, _ = f.GetBool("freezing")

	// environmental deaths still arrive as an attacker-less hit
	hit := &dto.HitRequest{}
	hasHit := req.Falling || req.Freezing
	if name, _ := f.GetString("attacker"); name != "" {
		kind, _ := f.GetString("kind")
		hit.Attacker = &dto.AttackerRequest{Name: name, Kind: kind}
		hasHit = true
	}
	if wood, _ := f.GetBool("woodcutting"); wood {
		hit.Woodcutting = true
		hasHit = true
	}

	amounts := map[string]*float64{
		"blunt":     &hit.Damage.Blunt,
		"pierce":    &hit.Damage.Pierce,
		"slash":     &hit.Damage.Slash,
		"fire":      &hit.Damage.Fire,
		"frost":     &hit.Damage.Frost,
		"lightning": &hit.Damage.Lightning,
		"poison":    &hit.Damage.Poison,
	}
	for name, target := range amounts {
		if v, _ := f.GetFloat64(name); v > 0 {
			*target = v
			hasHit = true
		}
	}

	if hasHit {
		req.Hit = hit
	}
	return req
}
