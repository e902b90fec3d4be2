package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/cmd/serverdeck/run"
	"github.com/serverdeck/serverdeck/cmd/serverdeck/screenshot"
	"github.com/serverdeck/serverdeck/cmd/serverdeck/sources"
	"github.com/serverdeck/serverdeck/cmd/serverdeck/subcmd"
	"github.com/serverdeck/serverdeck/internal/config"
	state_new "github.com/serverdeck/serverdeck/internal/state/new"
	"github.com/serverdeck/serverdeck/log2"
)

var log = log2.NewStderr(log2.LDebug)
var BuildVersion string = "unknown" // set by ldflags -X

var modules = []subcmd.Mod{
	run.Mod,
	screenshot.Mod,
	sources.Mod,
}

func main() {
	flagset := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := flagset.String("config", "serverdeck.hcl", "")
	flagset.Usage = func() {
		fmt.Fprintf(flagset.Output(), "Usage: %s [options] command [command options]\n\nCommands:\n", os.Args[0])
		for _, m := range modules {
			fmt.Fprintf(flagset.Output(), "  %-12s %s\n", m.Name, m.Desc)
		}
		fmt.Fprintf(flagset.Output(), "\nOptions:\n")
		flagset.PrintDefaults()
	}
	_ = flagset.Parse(os.Args[1:])

	command := flagset.Arg(0)
	if command == "" {
		command = run.Mod.Name
	}
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		flagset.Usage()
		log.Fatal(err)
	}
	var args []string
	if flagset.NArg() > 1 {
		args = flagset.Args()[1:]
	}

	// sources only prints the table
	if mod.Name == sources.Mod.Name {
		if err := mod.Main(context.Background(), nil, args); err != nil {
			log.Fatal(errors.ErrorStack(err))
		}
		return
	}

	log = log2.NewAuto(log2.LInfo)
	log.Debugf("serverdeck version=%s", BuildVersion)
	fs, err := config.NewOsFullReader(".")
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	cfg := config.MustReadConfig(log, fs, *configPath)
	if cfg.LogDebug {
		log.SetLevel(log2.LDebug)
	}

	ctx, g := state_new.NewContext(log, nil)
	g.BuildVersion = BuildVersion
	if g.ConfigPath, err = filepath.Abs(*configPath); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		g.Log.Infof("signal=%v stopping", sig)
		g.Alive.Stop()
	}()

	if err := mod.Main(ctx, cfg, args); err != nil {
		g.Alive.Stop()
		log.Fatal(errors.ErrorStack(err))
	}
	g.Alive.Stop()
	g.Alive.Wait()
}
