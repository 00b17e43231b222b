package main

import "github.com/alvesdmateus/auto-deployer/internal/cli/commands"

func main() {
	commands.Execute()
}
