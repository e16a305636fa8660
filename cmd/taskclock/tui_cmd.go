package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/fentz26/taskclock/internal/client"
	"github.com/fentz26/taskclock/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive dashboard",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	creds := credentials()
	c := client.New(apiAddr, creds)

	if !isServerRunning(c) {
		fmt.Println("⚡ taskclock server not running. Starting background service...")
		if err := startServer(c); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	app := tui.New(c, creds.UserID)
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isServerRunning(c *client.Client) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := c.Health(ctx)
	return err == nil
}

func startServer(c *client.Client) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(exe, "serve", "--config", configPath)
	// Detach so the server survives the TUI
	configureServerProc(cmd)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return err
	}

	fmt.Print("   Waiting for server...")
	for i := 0; i < 20; i++ {
		if isServerRunning(c) {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("server started but API not reachable at %s", apiAddr)
}
