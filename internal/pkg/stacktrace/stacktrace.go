// Package stacktrace trims runtime stacks down to this module's frames.
package stacktrace

import "strings"

const marker = "/internal/"

// InternalPaths returns the "internal/...file.go:line" locations found in a
// debug.Stack dump, innermost first.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.SplitSeq(string(stack), "\n") {
		line = strings.TrimSpace(line)
		idx := strings.Index(line, ".go:")
		if idx == -1 {
			continue
		}

		loc := line
		if sp := strings.IndexByte(line[idx:], ' '); sp != -1 {
			loc = line[:idx+sp]
		}

		at := strings.Index(loc, marker)
		if at == -1 {
			continue
		}
		paths = append(paths, loc[at+1:])
	}
	return paths
}
