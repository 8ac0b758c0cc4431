// Package source turns the input file pattern into the root tuples of a
// run, one per sample.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/esteinig/pathfinder/internal/config"
	"github.com/esteinig/pathfinder/internal/ctxlog"
	"github.com/exascience/pargo/parallel"
)

// ErrEmptySource is returned when the root input holds no samples. The run
// is aborted before anything is scheduled.
var ErrEmptySource = fmt.Errorf("%w: root input is empty", config.ErrConfiguration)

// Resolve expands pattern into one tuple per sample id, sorted by id. The
// pattern is a file glob that may hold brace alternatives, as in
// "data/*_{1,2}.fastq.gz"; the text matched by the first `*` of the file
// name is the sample id and the files of a sample are ordered by
// alternative. A sample matching only some alternatives keeps its partial
// file set; stage input filters such as min_files decide whether it runs.
// A pattern that matches nothing yields no tuples and no error.
func Resolve(ctx context.Context, pattern string) ([]channel.Tuple, error) {
	logger := ctxlog.FromContext(ctx)

	alternatives := expandBraces(pattern)
	groups := make(map[string][]channel.FileRef)
	for _, alt := range alternatives {
		idRegex, err := idPattern(filepath.Base(alt))
		if err != nil {
			return nil, config.Errorf("input pattern %q: %s", pattern, err)
		}
		matches, err := filepath.Glob(alt)
		if err != nil {
			return nil, config.Errorf("input pattern %q: %s", pattern, err)
		}
		for _, match := range matches {
			m := idRegex.FindStringSubmatch(filepath.Base(match))
			if m == nil {
				continue
			}
			groups[m[1]] = append(groups[m[1]], channel.FileRef{Path: match})
		}
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tuples := make([]channel.Tuple, len(ids))
	for i, id := range ids {
		tuples[i] = channel.NewTuple(id, groups[id]...)
	}

	if err := Validate(tuples); err != nil {
		return nil, err
	}
	logger.Debug("Source resolved.", "pattern", pattern, "alternatives", len(alternatives), "samples", len(tuples))
	return tuples, nil
}

// Validate checks in parallel that every file of every tuple is a readable
// regular file. The error of the first offending tuple, in input order, is
// returned.
func Validate(tuples []channel.Tuple) error {
	if len(tuples) == 0 {
		return nil
	}
	errs := make([]error, len(tuples))
	parallel.Range(0, len(tuples), 0, func(low, high int) {
		for i := low; i < high; i++ {
			errs[i] = validateTuple(tuples[i])
		}
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func validateTuple(t channel.Tuple) error {
	for _, f := range t.Files() {
		info, err := os.Stat(f.Path)
		if err != nil {
			return fmt.Errorf("%w: sample %s: %w", config.ErrConfiguration, t.ID, err)
		}
		if !info.Mode().IsRegular() {
			return config.Errorf("sample %s: %s is not a regular file", t.ID, f.Path)
		}
		fh, err := os.Open(f.Path)
		if err != nil {
			return fmt.Errorf("%w: sample %s: %w", config.ErrConfiguration, t.ID, err)
		}
		fh.Close()
	}
	return nil
}

// expandBraces expands every {a,b} group of a glob into its alternatives,
// preserving their order.
func expandBraces(pattern string) []string {
	open := strings.IndexByte(pattern, '{')
	if open < 0 {
		return []string{pattern}
	}
	end := strings.IndexByte(pattern[open:], '}')
	if end < 0 {
		return []string{pattern}
	}
	end += open

	var out []string
	for _, alt := range strings.Split(pattern[open+1:end], ",") {
		for _, rest := range expandBraces(pattern[end+1:]) {
			out = append(out, pattern[:open]+alt+rest)
		}
	}
	return out
}

// idPattern converts a file name glob into a regexp capturing the text
// matched by its first `*`.
func idPattern(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	captured := false
	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '*':
			if !captured {
				b.WriteString("(.+?)")
				captured = true
			} else {
				b.WriteString(".*")
			}
		case '?':
			b.WriteByte('.')
		case '[':
			j := strings.IndexByte(glob[i:], ']')
			if j < 0 {
				return nil, fmt.Errorf("unterminated character class")
			}
			b.WriteString(glob[i : i+j+1])
			i += j
		case '\\':
			if i+1 < len(glob) {
				i++
				b.WriteString(regexp.QuoteMeta(glob[i : i+1]))
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteByte('$')
	if !captured {
		return nil, fmt.Errorf("the file name must contain a * to derive sample ids")
	}
	return regexp.Compile(b.String())
}
