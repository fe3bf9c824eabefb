package command

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDie(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	addDeathFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestSignalFromFlags_AttackerAndDamage(t *testing.T) {
	req := signalFromFlags(parseDie(t, "--attacker", "Troll", "--kind", "boss", "--fire", "12"))

	require.NotNil(t, req.Hit)
	require.NotNil(t, req.Hit.Attacker)
	assert.Equal(t, "Troll", req.Hit.Attacker.Name)
	assert.Equal(t, "boss", req.Hit.Attacker.Kind)
	assert.Equal(t, 12.0, req.Hit.Damage.Fire)
	assert.Zero(t, req.Hit.Damage.Blunt)
}

func TestSignalFromFlags_Swimming(t *testing.T) {
	req := signalFromFlags(parseDie(t, "--swimming"))

	assert.True(t, req.Swimming)
	assert.Nil(t, req.Hit)
}

func TestSignalFromFlags_FallingIsAnAttackerlessHit(t *testing.T) {
	req := signalFromFlags(parseDie(t, "--falling"))

	require.NotNil(t, req.Hit)
	assert.Nil(t, req.Hit.Attacker)
	assert.True(t, req.Falling)
}
