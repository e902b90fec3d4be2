package log2

import (
	"bytes"

	"github.com/coreos/go-systemd/journal"
)

// journalWriter maps log2 message prefixes to journal priorities.
type journalWriter struct{}

func (journalWriter) Write(b []byte) (int, error) {
	msg := string(bytes.TrimRight(b, "\n"))
	if err := journal.Send(msg, journalPriority(b), nil); err != nil {
		return 0, err
	}
	return len(b), nil
}

func journalPriority(b []byte) journal.Priority {
	switch {
	case bytes.Contains(b, []byte("fatal: ")):
		return journal.PriCrit
	case bytes.Contains(b, []byte("error: ")):
		return journal.PriErr
	case bytes.Contains(b, []byte("warning: ")):
		return journal.PriWarning
	case bytes.Contains(b, []byte("debug: ")):
		return journal.PriDebug
	}
	return journal.PriInfo
}
