package command

import (
	"errors"
	"fmt"
	"net/http"

	"darwinawards/cmd/cli/command/client"
	"darwinawards/internal/microservices/http-api/dto"
	"darwinawards/internal/settings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var sessionScope bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or change display settings",
	Long: `Without --session the commands act on the peer's effective settings.
With --session they act on the settings the session server pushes to every
peer, which requires 'darwinCLI auth login'.`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show display settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			s   *settings.Settings
			err error
		)
		if sessionScope {
			c, cerr := adminClient()
			if cerr != nil {
				return cerr
			}
			s, err = c.GetSessionSettings()
		} else {
			s, err = peerClient().GetSettings()
		}
		if err != nil {
			return err
		}
		printSettings(s)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change display settings",
	Long: `Change the number of deaths shown and how long each stays visible.
Only the flags given are changed.

Example:
  darwinCLI settings set --deaths 5
  darwinCLI settings set --session --timer 0 --lock=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var req dto.UpdateSettingsRequest
		if cmd.Flags().Changed("deaths") {
			n, _ := cmd.Flags().GetInt("deaths")
			req.NumberOfDeaths = &n
		}
		if cmd.Flags().Changed("timer") {
			t, _ := cmd.Flags().GetUint("timer")
			req.TimerForDeaths = &t
		}

		var (
			s   *settings.Settings
			err error
		)
		if sessionScope {
			c, cerr := adminClient()
			if cerr != nil {
				return cerr
			}
			admin := dto.AdminSettingsRequest{UpdateSettingsRequest: req}
			if cmd.Flags().Changed("lock") {
				locked, _ := cmd.Flags().GetBool("lock")
				admin.Locked = &locked
			}
			s, err = c.UpdateSessionSettings(&admin)
		} else {
			s, err = peerClient().UpdateSettings(&req)
		}

		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusLocked {
			return fmt.Errorf("the session locks the configuration, log in as admin to override")
		}
		if err != nil {
			return err
		}

		color.Green("✓ Settings updated")
		printSettings(s)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	settingsCmd.PersistentFlags().BoolVar(&sessionScope, "session", false, "act on the session-wide settings")

	settingsSetCmd.Flags().Int("deaths", settings.DefaultNumberOfDeaths, fmt.Sprintf("deaths shown at once (0-%d, 0 hides the log)", settings.MaxNumberOfDeaths))
	settingsSetCmd.Flags().Uint("timer", settings.DefaultTimerForDeaths, "seconds a death stays visible (0 = no limit)")
	settingsSetCmd.Flags().Bool("lock", true, "lock the configuration for peers (with --session)")
}

func printSettings(s *settings.Settings) {
	fmt.Printf("   Locked:           %t\n", s.Locked)
	fmt.Printf("   Number of deaths: %d\n", s.NumberOfDeaths)
	if s.TimerForDeaths == 0 {
		fmt.Println("   Timer for deaths: no limit")
	} else {
		fmt.Printf("   Timer for deaths: %ds\n", s.TimerForDeaths)
	}
}
