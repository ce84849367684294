// label.go provides a way of generating assembly labels for jumps.

package util

import "fmt"

// Labeler hands out monotonically increasing label names. Instance-scoped
// rather than package-global: code generation is single-threaded, so each
// generator owns its own Labeler with no synchronization needed.
type Labeler struct {
	n int
}

// New returns the next label in the sequence: label0, label1, ...
func (l *Labeler) New() string {
	s := fmt.Sprintf("label%d", l.n)
	l.n++
	return s
}
