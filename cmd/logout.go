package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored Spotify credentials",
		Long: `Logout from Spotify by removing the stored token.
After logging out, you will need to run 'login' again before using
commands that require Spotify authentication.`,
		Args: cobra.NoArgs,
		RunE: runLogout,
	}

	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, _ []string) error {
	if err := authConfig().Logout(); err != nil {
		return err
	}
	newConsole(cmd).Success("✓ Successfully logged out!")
	return nil
}
