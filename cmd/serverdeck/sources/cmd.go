// List data source vocabulary usable in widget data_source.
package sources

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/serverdeck/serverdeck/cmd/serverdeck/subcmd"
	"github.com/serverdeck/serverdeck/internal/config"
	"github.com/serverdeck/serverdeck/internal/source"
)

var Mod = subcmd.Mod{Name: "sources", Desc: "list data sources", Main: Main}

func Main(_ context.Context, _ *config.Config, _ []string) error {
	return Print(os.Stdout)
}

func Print(w io.Writer) error {
	for _, d := range source.Vocabulary() {
		kind := ""
		if d.Kind == source.KindRate {
			kind = " rate"
		}
		if _, err := fmt.Fprintf(w, "%-36s arity=%d interval=%v%s\n", d.String(), d.Arity, d.Interval, kind); err != nil {
			return err
		}
	}
	return nil
}
