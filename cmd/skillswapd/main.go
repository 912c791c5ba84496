package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"skillswap/internal/config"
	"skillswap/internal/daemon"
	"skillswap/internal/profile"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		// No config yet: run offline with the in-memory backend.
		cfg = &config.Config{Durable: config.Durable{Driver: "memory"}}
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			ProfileName: profileName,
			Durable:     cfg.Durable,
		}),
	)

	app.Run()
}
