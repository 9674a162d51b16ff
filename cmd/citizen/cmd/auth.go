package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-citizen-client/internal/auth"
	"github.com/sirosfoundation/go-citizen-client/internal/domain"
)

// readSecret returns flagValue, or a line read from in after printing prompt.
func readSecret(cmd *cobra.Command, flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func resultError(action string, res auth.Result) error {
	if res.Message == "" {
		return fmt.Errorf("%s failed", action)
	}
	return fmt.Errorf("%s failed: %s", action, res.Message)
}

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the backend",
	Long: `Sign in with email and password. When the backend is unreachable a
local demo session is created instead. Wrong credentials never create a
session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readSecret(cmd, loginPassword, "Password: ")
		if err != nil {
			return err
		}

		res := current.manager.Login(cmd.Context(), loginEmail, password)
		if output == "json" {
			if err := printValue(cmd.OutOrStdout(), res); err != nil {
				return err
			}
		}
		if !res.Success {
			return resultError("login", res)
		}
		if output == "json" {
			return nil
		}

		user := current.manager.Snapshot().Session.User
		if res.DemoMode {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nSigned in as %s (demo mode).\n", res.Message, user.FullName)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", displayName(user))
		return nil
	},
}

var registerReq domain.RegisterRequest

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a citizen account",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := registerReq
		password, err := readSecret(cmd, req.Password, "Password: ")
		if err != nil {
			return err
		}
		req.Password = password

		res := current.manager.Register(cmd.Context(), req)
		if output == "json" {
			if err := printValue(cmd.OutOrStdout(), res); err != nil {
				return err
			}
		} else if res.Success {
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		}
		if !res.Success {
			return resultError("registration", res)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		current.manager.Logout(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := current.manager.Snapshot()
		if output == "json" {
			return printValue(cmd.OutOrStdout(), map[string]any{
				"state":    snap.State,
				"demoMode": snap.Session.DemoMode,
				"user":     snap.Session.User,
			})
		}

		if !snap.Session.Authenticated() {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
			return nil
		}
		printProfile(cmd.OutOrStdout(), snap)
		return nil
	},
}

func displayName(u *domain.UserProfile) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

func printProfile(w io.Writer, snap auth.Snapshot) {
	u := snap.Session.User
	mode := "real"
	if snap.Session.DemoMode {
		mode = "demo"
	}
	printTable(w, []string{"FIELD", "VALUE"}, [][]string{
		{"id", u.ID},
		{"name", u.FullName},
		{"email", u.Email},
		{"mobile", u.Mobile},
		{"city", u.City},
		{"session", mode},
	})
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password (prompted when omitted)")

	registerCmd.Flags().StringVar(&registerReq.FullName, "name", "", "Full name")
	registerCmd.Flags().StringVarP(&registerReq.Email, "email", "e", "", "Account email")
	registerCmd.Flags().StringVar(&registerReq.Mobile, "mobile", "", "Mobile number")
	registerCmd.Flags().StringVar(&registerReq.City, "city", "", "City")
	registerCmd.Flags().StringVarP(&registerReq.Password, "password", "p", "", "Account password (prompted when omitted)")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}
