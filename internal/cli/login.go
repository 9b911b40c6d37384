// login.go implements the "formcourier login" command.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Authenticate against the central server",
	Long: `Exchange credentials for a bearer token and store it in the client
configuration. The password is read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	username := args[0]

	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	client, err := app.Client()
	if err != nil {
		return err
	}
	token, err := client.Login(cmd.Context(), username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	app.Config.Server.Token = token
	if err := app.SaveConfig(); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
	return nil
}
