package main

import (
	"fmt"

	"github.com/fentz26/taskclock/internal/config"
	"github.com/fentz26/taskclock/internal/identity"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save the identity used for API calls",
	Long: `Saves --user/--email (header identity) or --token (Google ID token) so later
commands do not need them.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved identity",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity used for API calls",
	RunE:  runWhoami,
}

func runLogin(cmd *cobra.Command, args []string) error {
	if userID == "" && token == "" {
		return fmt.Errorf("pass --user or --token to log in")
	}
	store, err := identity.NewCredentialStore(config.Dir())
	if err != nil {
		return err
	}
	if err := store.Save(identity.Credentials{UserID: userID, Email: userEmail, Token: token}); err != nil {
		return err
	}
	if userID != "" {
		fmt.Printf("Logged in as %s\n", userID)
	} else {
		fmt.Println("Saved ID token")
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	store, err := identity.NewCredentialStore(config.Dir())
	if err != nil {
		return err
	}
	if store.Get() == nil {
		fmt.Println("Not logged in")
		return nil
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	creds := credentials()
	switch {
	case creds.UserID != "":
		fmt.Printf("User:  %s\n", creds.UserID)
		if creds.Email != "" {
			fmt.Printf("Email: %s\n", creds.Email)
		}
	case creds.Token != "":
		fmt.Println("Using a saved ID token")
	default:
		fmt.Println("Not logged in. Use 'taskclock login --user <id>'.")
	}
	return nil
}
