// Main mode: show screens on attached display until SIGTERM.
package run

import (
	"context"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/cmd/serverdeck/subcmd"
	"github.com/serverdeck/serverdeck/internal/config"
	"github.com/serverdeck/serverdeck/internal/state"
	"github.com/serverdeck/serverdeck/internal/ui"
)

var Mod = subcmd.Mod{Name: "run", Desc: "drive display and touch (default)", Main: Main}

func Main(ctx context.Context, cfg *config.Config, _ []string) error {
	g := state.GetGlobal(ctx)
	// cancelled on return, in-flight metric reads are abandoned
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := g.Init(ctx, cfg); err != nil {
		return errors.Annotate(err, "init")
	}
	defer func() {
		if err := g.CloseHardware(); err != nil {
			g.Error(err, "close hardware")
		}
	}()

	uix := ui.UI{}
	if err := uix.Init(ctx); err != nil {
		return errors.Annotate(err, "ui Init()")
	}

	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Infof("serverdeck init complete screens=%d warnings=%d", len(g.Model.Screens), len(g.Warnings))

	uix.Loop(ctx)
	subcmd.SdNotify(daemon.SdNotifyStopping)
	return nil
}
