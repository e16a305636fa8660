package main

import (
	"fmt"
	"os"

	"github.com/fentz26/taskclock/internal/client"
	"github.com/fentz26/taskclock/internal/config"
	"github.com/fentz26/taskclock/internal/identity"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskclock",
	Short: "taskclock - task tracking with time logs",
	Long:  `taskclock tracks tasks through their lifecycle, times the work done on them and reports where the time went.`,
	// No RunE - defaults to showing help when no subcommand is provided
	SilenceUsage: true,
}

var (
	apiAddr    string
	userID     string
	userEmail  string
	token      string
	configPath string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7466", "API server address")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "User ID to act as (defaults to the saved login)")
	rootCmd.PersistentFlags().StringVar(&userEmail, "email", "", "E-mail sent with --user")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer ID token (defaults to the saved login)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to the config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

// credentials merges the flags over the saved login.
func credentials() client.Credentials {
	creds := client.Credentials{UserID: userID, Email: userEmail, Token: token}
	if creds.UserID != "" || creds.Token != "" {
		return creds
	}
	store, err := identity.NewCredentialStore(config.Dir())
	if err != nil {
		return creds
	}
	if saved := store.Get(); saved != nil {
		creds = client.Credentials{UserID: saved.UserID, Email: saved.Email, Token: saved.Token}
	}
	return creds
}

func newClient() *client.Client {
	return client.New(apiAddr, credentials())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
