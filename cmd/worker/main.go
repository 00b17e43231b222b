package main

import "github.com/alvesdmateus/auto-deployer/internal/cli/commands"

// The worker binary runs the auto-deploy loop without the HTTP API.
// Flags are those of "auto-deployer worker".
func main() {
	commands.ExecuteCommand("worker")
}
