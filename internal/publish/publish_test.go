package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_CopiesIntoStageDirectory(t *testing.T) {
	work := t.TempDir()
	src := filepath.Join(work, "A.fasta")
	require.NoError(t, os.WriteFile(src, []byte(">contig\nACGT\n"), 0o644))

	root := filepath.Join(t.TempDir(), "results")
	err := NewDir(root).Publish(context.Background(), "Assembly", "A", "", []channel.FileRef{{Path: src}})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(root, "Assembly", "A", "A.fasta"))
	require.NoError(t, err)
	assert.Equal(t, ">contig\nACGT\n", string(got))

	_, err = os.Stat(src)
	assert.NoError(t, err, "the source file stays in place")
}

func TestDir_SameBaseNameKeptPerTask(t *testing.T) {
	root := t.TempDir()
	d := NewDir(root)
	write := func(name, content string) channel.FileRef {
		dir := filepath.Join(t.TempDir(), name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		path := filepath.Join(dir, "contigs.fasta")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return channel.FileRef{Path: path}
	}

	ctx := context.Background()
	require.NoError(t, d.Publish(ctx, "Assembly", "A", "", []channel.FileRef{write("a", ">A")}))
	require.NoError(t, d.Publish(ctx, "Assembly", "B", "", []channel.FileRef{write("b", ">B")}))
	require.NoError(t, d.Publish(ctx, "Abricate", "A", "vfdb", []channel.FileRef{write("v", "vfdb")}))
	require.NoError(t, d.Publish(ctx, "Abricate", "A", "card", []channel.FileRef{write("c", "card")}))

	for path, want := range map[string]string{
		filepath.Join(root, "Assembly", "A", "contigs.fasta"):         ">A",
		filepath.Join(root, "Assembly", "B", "contigs.fasta"):         ">B",
		filepath.Join(root, "Abricate", "A", "vfdb", "contigs.fasta"): "vfdb",
		filepath.Join(root, "Abricate", "A", "card", "contigs.fasta"): "card",
	} {
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, want, string(got), path)
	}
}

func TestDir_RejectsEscapingComponents(t *testing.T) {
	root := t.TempDir()
	ref := channel.FileRef{Path: filepath.Join(t.TempDir(), "x")}
	testCases := []struct {
		name                  string
		stage, lineage, param string
	}{
		{name: "parent lineage", stage: "Assembly", lineage: "..", param: ""},
		{name: "absolute param", stage: "Assembly", lineage: "A", param: "/etc"},
		{name: "empty lineage", stage: "Assembly", lineage: "", param: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewDir(root).Publish(context.Background(), tc.stage, tc.lineage, tc.param, []channel.FileRef{ref})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid publish path component")
		})
	}
}

func TestDir_MissingSourceFails(t *testing.T) {
	root := t.TempDir()
	err := NewDir(root).Publish(context.Background(), "Assembly", "A", "", []channel.FileRef{{Path: filepath.Join(root, "absent")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish")
}

func TestDir_NothingToPublish(t *testing.T) {
	root := filepath.Join(t.TempDir(), "results")
	require.NoError(t, NewDir(root).Publish(context.Background(), "Kraken", "A", "", nil))
	_, err := os.Stat(root)
	assert.True(t, os.IsNotExist(err), "no directory is created without files")
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.Publish(context.Background(), "Kraken", "A", "", []channel.FileRef{{Path: "/nope"}}))
}
