package command

// root.go defines the root command and the global flags.

import (
	"fmt"
	"os"

	"darwinawards/cmd/cli/authentication"
	"darwinawards/cmd/cli/command/client"

	"github.com/spf13/cobra"
)

var (
	peerURL   string // local peer API
	serverURL string // session server admin API
)

var rootCmd = &cobra.Command{
	Use:   "darwinCLI",
	Short: "darwinCLI - death announcements for multiplayer sessions",
	Long: `darwinCLI talks to a running peer and to the session server. It can:
- Report a death of the local player
- Follow the death feed of a peer
- Read and change display settings
- Reload the message corpus and list its revisions

Use "darwinCLI command -h" to see all available commands.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&peerURL, "peer", envOr("DARWIN_PEER_URL", "http://127.0.0.1:8090"), "peer API URL")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("DARWIN_SERVER_URL", "http://127.0.0.1:8084"), "session server URL")

	rootCmd.AddCommand(authCmd, dieCmd, feedCmd, listenCmd, settingsCmd, corpusCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// adminClient returns a session server client carrying the stored token.
func adminClient() (*client.HTTPClient, error) {
	creds, err := authentication.GetTokens()
	if err != nil {
		return nil, err
	}
	c := client.NewHTTPClient(serverURL)
	c.SetToken(creds.AccessToken)
	return c, nil
}

// peerClient returns a peer client, with the admin token when one is stored.
func peerClient() *client.HTTPClient {
	c := client.NewHTTPClient(peerURL)
	if creds, err := authentication.GetTokens(); err == nil {
		c.SetToken(creds.AccessToken)
	}
	return c
}
