package command

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"darwinawards/cmd/cli/authentication"
	"darwinawards/cmd/cli/command/client"
	"darwinawards/internal/microservices/http-api/dto"
	"darwinawards/internal/middleware/auth"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Admin authentication commands",
	Long:  `Log in to the session server as admin. The token is kept in the OS keyring.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login as session admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req dto.LoginRequest
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")
		if req.Password == "" {
			req.Password = prompt("password: ")
		}

		response, err := client.NewHTTPClient(serverURL).Login(&req)
		if err != nil {
			return fmt.Errorf("login process failed: %w", err)
		}

		err = authentication.StoreTokens(&authentication.StoredCredentials{
			AccessToken: response.AccessToken,
			Username:    req.Username,
			Server:      serverURL,
			ExpiresAt:   response.ExpiresAt.Unix(),
		})
		if err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}

		color.Green("✓ Logged in as %s (expires %s)", req.Username, response.ExpiresAt.Local().Format("15:04"))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored admin token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := authentication.DeleteTokens(); err != nil {
			return err
		}
		color.Green("✓ Logged out.")
		return nil
	},
}

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = prompt("password: ")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	authCmd.AddCommand(loginCmd, logoutCmd, hashCmd)

	loginCmd.Flags().StringP("username", "u", "admin", "Admin username")
	loginCmd.Flags().StringP("password", "p", "", "Admin password (prompted when empty)")

	hashCmd.Flags().StringP("password", "p", "", "Password to hash (prompted when empty)")
}

func prompt(label string) string {
	fmt.Print(label)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
