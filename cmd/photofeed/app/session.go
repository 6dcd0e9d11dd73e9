package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stacklok/photofeed/internal/backend"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and store the session",
		Long: `Log in to the backend and store the session in the configured session store.

The password is prompted for on a terminal and read from the first line of
STDIN otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: runLogin,
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	username := strings.TrimSpace(args[0])
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	var (
		password string
		err      error
	)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err = passwordFromTerminal(cmd.ErrOrStderr())
	} else {
		password, err = passwordFromReader(cmd.InOrStdin())
	}
	if err != nil {
		return err
	}

	_, components, err := loadComponents()
	if err != nil {
		return err
	}
	defer components.Close()

	identity, err := components.Client.LogIn(cmd.Context(), username, password)
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", identity.Username)
	return nil
}

func passwordFromTerminal(prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Password: ")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(passwordBytes) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}
	return string(passwordBytes), nil
}

func passwordFromReader(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and remove it from the session store",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func runLogout(cmd *cobra.Command, _ []string) error {
	_, components, err := loadComponents()
	if err != nil {
		return err
	}
	defer components.Close()

	err = components.Client.LogOut(cmd.Context())
	var remoteErr *backend.RemoteError
	switch {
	case errors.As(err, &remoteErr):
		// The local session is gone even when the server could not revoke it
		slog.Warn("Server did not revoke the session", "error", err)
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out locally; the server could not revoke the session")
		return nil
	case err != nil:
		return fmt.Errorf("failed to log out: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func newWhoamiCmd() *cobra.Command {
	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the logged-in user",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
	whoamiCmd.Flags().StringP("output", "o", outputTable, "Output format (table or json)")
	return whoamiCmd
}

type whoamiOutput struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	if err := validateOutput(format); err != nil {
		return err
	}

	_, components, err := loadComponents()
	if err != nil {
		return err
	}
	defer components.Close()

	identity, err := components.Client.CurrentIdentity(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load current user: %w", err)
	}
	if identity == nil {
		return fmt.Errorf("not logged in")
	}

	if format == outputJSON {
		return writeJSON(cmd.OutOrStdout(), whoamiOutput{UserID: identity.UserID, Username: identity.Username})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", identity.Username, identity.UserID)
	return nil
}
