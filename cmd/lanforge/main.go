// Command lanforge is a terminal front end over the peer engine. It owns
// the parts explicitly out of scope for the core (line reading, command
// parsing) and otherwise does nothing the core doesn't already do — every
// subcommand is a thin driver over internal/peer, internal/coordinator
// and internal/discovery: load config, hand off
// to a small Run-shaped function, log and exit non-zero on failure.
package main

import (
	"fmt"
	"os"

	"github.com/VanshMandot/LanForge/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := config.Load()
	var err error

	switch os.Args[1] {
	case "host":
		name := cfg.ClientName
		if len(os.Args) > 2 {
			name = os.Args[2]
		}
		err = runHost(cfg, name)
	case "discover":
		err = runDiscover(cfg)
	case "join":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "usage: lanforge join <name> <joinCode>")
			os.Exit(1)
		}
		err = runJoin(cfg, os.Args[2], os.Args[3])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "lanforge:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: lanforge <host [name] | discover | join <name> <joinCode>>")
}
