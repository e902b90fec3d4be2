package types

import "context"

// Reading is one sample from metric provider.
// Rate sources use Counter, others use Values.
type Reading struct {
	Values  []string
	Counter uint64
}

type MetricProvider interface {
	Read(ctx context.Context, name string, args []string) (Reading, error)
}
