package channel

import (
	"fmt"
	"os"
	"strings"
)

// FileRef is a logical handle on a file produced by a stage or the source.
type FileRef struct {
	Path string
}

// Size stats the file on every call. The value is never cached so that a
// predicate always sees the file as it is when the predicate runs.
func (f FileRef) Size() (int64, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Tuple is one item travelling through a channel. It is immutable: the file
// list is copied on construction and on every read, so fan-out subscribers
// can share a single value.
type Tuple struct {
	// ID is the lineage identifier (the root sample id).
	ID string
	// Param is the cross-product element this tuple was derived for, or
	// empty when no each-list applied.
	Param string

	files []FileRef
}

// NewTuple creates a tuple for the given lineage.
func NewTuple(id string, files ...FileRef) Tuple {
	return Tuple{ID: id, files: append([]FileRef(nil), files...)}
}

// Files returns a copy of the tuple's files.
func (t Tuple) Files() []FileRef {
	return append([]FileRef(nil), t.files...)
}

// Len returns the number of files.
func (t Tuple) Len() int {
	return len(t.files)
}

// WithParam derives a tuple for one cross-product element. Elements nest
// with a "/" separator when the tuple already carries one.
func (t Tuple) WithParam(elem string) Tuple {
	d := Tuple{ID: t.ID, Param: elem, files: t.files}
	if t.Param != "" {
		d.Param = t.Param + "/" + elem
	}
	return d
}

// WithFiles derives a tuple of the same lineage and element with new files.
func (t Tuple) WithFiles(files ...FileRef) Tuple {
	return Tuple{ID: t.ID, Param: t.Param, files: append([]FileRef(nil), files...)}
}

// Key is the correlation key used to join tuples of one lineage.
func (t Tuple) Key() string {
	if t.Param == "" {
		return t.ID
	}
	return t.ID + "#" + t.Param
}

// String implements fmt.Stringer.
func (t Tuple) String() string {
	paths := make([]string, len(t.files))
	for i, f := range t.files {
		paths[i] = f.Path
	}
	return fmt.Sprintf("%s[%s]", t.Key(), strings.Join(paths, ","))
}
