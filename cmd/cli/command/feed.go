package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"darwinawards/cmd/cli/command/client"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Follow the visible deaths of a peer",
	Long: `Connect to the peer's websocket feed and print the visible deaths every
time they change. Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		color.Cyan("🔌 Following %s ...", peerURL)
		if err := client.WatchFeed(ctx, peerURL, client.PrintFeed); err != nil {
			return err
		}
		fmt.Println()
		return nil
	},
}
