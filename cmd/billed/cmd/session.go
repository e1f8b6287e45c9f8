package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"billed/internal/core"
)

var (
	loginEmail string
	loginType  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save the session used to tag uploads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := newSessionProvider()
		if err != nil {
			return err
		}
		if err := p.Save(core.Session{Email: loginEmail, Type: loginType}); err != nil {
			return err
		}
		cmd.Printf("Logged in as %s\n", loginEmail)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := newSessionProvider()
		if err != nil {
			return err
		}
		if err := p.Clear(); err != nil {
			return err
		}
		cmd.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := newSessionProvider()
		if err != nil {
			return err
		}
		s, err := p.Session()
		if errors.Is(err, core.ErrNoSession) {
			cmd.Println("Not logged in.")
			return nil
		}
		if err != nil {
			return err
		}
		cmd.Printf("%s (%s)\n", s.Email, s.Type)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "user email")
	loginCmd.Flags().StringVar(&loginType, "type", "employee", "user type")
	_ = loginCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
