package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/stretchr/testify/require"
)

// WriteFile creates a zero-filled file of the given size under dir.
func WriteFile(t *testing.T, dir, name string, size int) channel.FileRef {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return channel.FileRef{Path: path}
}

// Sample creates a root tuple with one paired file set of the given size.
func Sample(t *testing.T, dir, id string, size int) channel.Tuple {
	t.Helper()
	return channel.NewTuple(id,
		WriteFile(t, dir, id+"_1.fastq.gz", size),
		WriteFile(t, dir, id+"_2.fastq.gz", size),
	)
}
