// migrate applies the embedded customer and audit schema; use with go run ./cmd/migrate.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"fleet-provisioning/internal/config"
	"fleet-provisioning/internal/db/migrate"
)

func main() {
	fs := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	direction := fs.String("direction", "up", "migration direction: up or down")
	version := fs.Bool("version", false, "print the applied schema version and exit")
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.LoadWithFlags(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if *version {
		v, dirty, err := migrate.Version(cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
		fmt.Printf("version %d (dirty=%v)\n", v, dirty)
		return
	}

	if err := migrate.Run(cfg.DatabaseURL, migrate.Direction(*direction)); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
