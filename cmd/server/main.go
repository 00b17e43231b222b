package main

import "github.com/alvesdmateus/auto-deployer/internal/cli/commands"

// The server binary runs the auto-deploy loop together with the HTTP API.
// Flags are those of "auto-deployer serve".
func main() {
	commands.ExecuteCommand("serve")
}
