// provision creates Wialon customers and runs the operator tasks around them.
//
// Usage:
//
//	provision create --customer alice --password '...' [--tier fleet] [--unit IMEI ...]
//	provision show --customer alice
//	provision migrate-unit --unit IMEI --account ID
//	provision group add|remove --group ID --unit IMEI
//	provision add-days --account ID --days N
//	provision rename --kind unit --id ID --name NAME
//	provision check-name --kind user --name alice
//	provision health
//
// Configuration comes from the environment and .env (see internal/config); flags override it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"fleet-provisioning/internal/config"
)

type command struct {
	usage string
	flags func(fs *pflag.FlagSet) func(ctx context.Context, a *app) error
}

var commands = map[string]command{
	"create":       {"provision a new customer", createCmd},
	"show":         {"print a provisioned customer and its audit trail", showCmd},
	"migrate-unit": {"move a unit into an account", migrateUnitCmd},
	"group":        {"add or remove a unit in a unit group", groupCmd},
	"add-days":     {"extend an account's paid days", addDaysCmd},
	"rename":       {"rename an item", renameCmd},
	"check-name":   {"report whether a name is free", checkNameCmd},
	"health":       {"check the database, policy and Remote API", healthCmd},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "provision: unknown command %q\n", name)
		usage()
		os.Exit(2)
	}

	fs := pflag.NewFlagSet("provision "+name, pflag.ExitOnError)
	config.RegisterFlags(fs)
	run := cmd.flags(fs)
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.LoadWithFlags(fs)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("provision: %v", err)
	}
	err = run(ctx, a)
	a.close()
	if err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(int(exit))
		}
		fmt.Fprintln(os.Stderr, "provision:", err)
		os.Exit(1)
	}
}

// exitError ends the process with its code without printing anything further.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit %d", int(e)) }

func usage() {
	fmt.Fprintln(os.Stderr, "usage: provision <command> [flags]")
	for _, name := range []string{"create", "show", "migrate-unit", "group", "add-days", "rename", "check-name", "health"} {
		fmt.Fprintf(os.Stderr, "  %-13s %s\n", name, commands[name].usage)
	}
}
