package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"darwinawards/internal/peer"
	"darwinawards/internal/shared"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var sessionAddr string

// listenCmd joins the relay as a spectator and prints every death.
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Listen to a session relay directly",
	Long: `Subscribe to the UDP session relay as a spectator and print every death
broadcast in the session. The spectator never sends deaths.

Press Ctrl+C to stop listening and disconnect.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		c := peer.NewClient(sessionAddr, "spectator-"+uuid.NewString(), "spectator", nil)
		c.OnReceive(func(msg shared.DeathMessage) {
			color.New(color.FgHiBlack).Printf("%s ", time.Now().Format("15:04:05"))
			color.New(color.FgRed).Printf("[%s] ", msg.Category)
			fmt.Println(msg.Text)
		})

		fmt.Println("🔌 Connecting to session relay...")
		fmt.Printf("   Server: %s\n\n", sessionAddr)
		if err := c.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}

		err := c.Listen(ctx)
		s := c.Stats()
		c.Disconnect()

		fmt.Println()
		color.Cyan("📊 Session statistics")
		fmt.Printf("   Uptime:          %s\n", s.Uptime.Round(time.Second))
		fmt.Printf("   Deaths received: %d\n", s.DeathsReceived)
		fmt.Printf("   Duplicates:      %d\n", s.Duplicates)
		fmt.Printf("   Synced values:   %d\n", s.SyncsReceived)
		return err
	},
}

func init() {
	listenCmd.Flags().StringVar(&sessionAddr, "session", envOr("SESSION_ADDR", "127.0.0.1:8082"), "session relay UDP address")
}
