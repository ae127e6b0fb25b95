package app

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hitoshi/skillshare/internal/model"
)

// passwordEnv はフラグを使わずにパスワードを渡すための環境変数。
const passwordEnv = "SKILLSHARE_PASSWORD"

func (a *App) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Log in and persist the session token",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationAuthEntry: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := resolvePassword(password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			user, err := a.auth.Login(cmd.Context(), email, pw)
			if err != nil {
				return err
			}
			return a.emit(user, func() error {
				a.printf("logged in as %s <%s>\n", a.clean(user.Name), a.clean(user.Email))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or "+passwordEnv+", or stdin)")
	return cmd
}

func (a *App) registerCommand() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Create an account and log in",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationAuthEntry: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := resolvePassword(password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			user, err := a.auth.Register(cmd.Context(), name, email, pw)
			if err != nil {
				return err
			}
			return a.emit(user, func() error {
				a.printf("registered and logged in as %s <%s>\n", a.clean(user.Name), a.clean(user.Email))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or "+passwordEnv+", or stdin)")
	return cmd
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the persisted session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			a.printf("logged out\n")
			return nil
		},
	}
}

func (a *App) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.requireLogin()
			if err != nil {
				return err
			}
			return a.emit(user, func() error { return a.printUser(&user) })
		},
	}
}

// resolvePassword はフラグ、環境変数、標準入力の1行目の順にパスワードを決定する。
func resolvePassword(flag string, stdin io.Reader) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := os.Getenv(passwordEnv); v != "" {
		return v, nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", model.NewClientValidationError("Password is required")
	}
	return pw, nil
}
