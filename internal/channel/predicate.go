package channel

import (
	"fmt"
	"strings"
)

// Predicate decides whether a tuple is delivered to a subscriber. Predicates
// are pure functions of the tuple; they hold no mutable state.
type Predicate interface {
	Accept(t Tuple) bool
	String() string
}

// Always accepts every tuple. It is the default subscription predicate.
type Always struct{}

func (Always) Accept(Tuple) bool { return true }
func (Always) String() string    { return "always" }

// MinFileSize accepts a tuple when every file is strictly larger than Bytes.
// A tuple without files and a file that cannot be stat'ed reject the tuple.
type MinFileSize struct {
	Bytes int64
}

func (p MinFileSize) Accept(t Tuple) bool {
	if len(t.files) == 0 {
		return false
	}
	for _, f := range t.files {
		size, err := f.Size()
		if err != nil || size <= p.Bytes {
			return false
		}
	}
	return true
}

func (p MinFileSize) String() string {
	return fmt.Sprintf("size > %d", p.Bytes)
}

// MinFiles accepts a tuple carrying at least N files.
type MinFiles struct {
	N int
}

func (p MinFiles) Accept(t Tuple) bool { return len(t.files) >= p.N }
func (p MinFiles) String() string      { return fmt.Sprintf("files >= %d", p.N) }

// All is the conjunction of its predicates. An empty All accepts everything.
type All []Predicate

func (a All) Accept(t Tuple) bool {
	for _, p := range a {
		if !p.Accept(t) {
			return false
		}
	}
	return true
}

func (a All) String() string {
	if len(a) == 0 {
		return Always{}.String()
	}
	parts := make([]string, len(a))
	for i, p := range a {
		parts[i] = p.String()
	}
	return strings.Join(parts, " && ")
}
