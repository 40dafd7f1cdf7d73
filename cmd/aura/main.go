// Command aura runs the Aura ledger daemon and its management CLI.
package main

import "github.com/aura-network/aura/internal/cli"

func main() {
	cli.Execute()
}
