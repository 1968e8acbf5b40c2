package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sakif/livt/internal/auth"
	"github.com/sakif/livt/internal/model"
	"github.com/sakif/livt/internal/server"
	"github.com/sakif/livt/internal/service"
)

// readPassword is replaced in tests so no terminal is needed.
var readPassword = func(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		return string(pw), err
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserCreateCmd(a))
	return cmd
}

func newUserCreateCmd(a *app) *cobra.Command {
	var email, displayName, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an email/password account",
		Long: `Creates an account the same way the sign-up form does. The password is
read from the terminal without echo, or from stdin when it is not a
terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printf(cmd.ErrOrStderr(), "Password: ")
			password, err := readPassword(cmd.InOrStdin())
			printf(cmd.ErrOrStderr(), "\n")
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}

			return a.withStores(cmd.Context(), func(s *server.Stores) error {
				tokens, err := auth.NewTokenService(a.cfg.Auth.JWTSecret, a.cfg.Auth.SessionTTL)
				if err != nil {
					return err
				}
				passwords, err := auth.NewPasswordService(a.cfg.Auth.BcryptCost)
				if err != nil {
					return err
				}

				users := service.NewAuthService(s.DB, tokens, passwords, a.logger)
				result, err := users.SignUp(cmd.Context(), service.SignUpInput{
					Email:       email,
					Password:    password,
					DisplayName: displayName,
					Role:        model.Role(role),
				})
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "created %s %s (%s)\n", result.User.Role, result.User.Email, result.User.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name (defaults to the email's local part)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleCreator), "creator or user")
	cmd.MarkFlagRequired("email")
	return cmd
}
