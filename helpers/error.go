package helpers

import (
	"strings"

	"github.com/juju/errors"
)

// FoldErrors joins non-nil errors into one, nil if there are none.
func FoldErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	ss := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			ss = append(ss, e.Error())
		}
	}
	if len(ss) == 0 {
		return nil
	}
	return errors.New(strings.Join(ss, "\n"))
}

// ErrorList collects non-fatal problems, e.g. config warnings.
type ErrorList []error

func (self *ErrorList) Add(err error) {
	if err != nil {
		*self = append(*self, err)
	}
}

func (self *ErrorList) Addf(format string, args ...interface{}) {
	*self = append(*self, errors.Errorf(format, args...))
}

func (self ErrorList) Fold() error { return FoldErrors(self) }
