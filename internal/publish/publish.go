// Package publish copies the artifacts of completed tasks into the results
// tree.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/esteinig/pathfinder/internal/ctxlog"
)

// Publisher stores the files a task produced. A task is identified by its
// stage, lineage and cross-product element (empty when none).
type Publisher interface {
	Publish(ctx context.Context, stage, lineage, param string, files []channel.FileRef) error
}

// Discard is the no-op Publisher.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, string, string, string, []channel.FileRef) error { return nil }

// Dir copies files into `<Root>/<stage>/<lineage>/`, or
// `<Root>/<stage>/<lineage>/<param>/` for cross-product tasks, keeping their
// base names. Every task owns its directory; a re-run overwrites it.
type Dir struct {
	Root string
}

// NewDir creates a directory publisher rooted at root.
func NewDir(root string) *Dir {
	return &Dir{Root: root}
}

// Publish implements Publisher. It stops at the first file that cannot be
// copied.
func (d *Dir) Publish(ctx context.Context, stage, lineage, param string, files []channel.FileRef) error {
	if len(files) == 0 {
		return nil
	}
	target, err := d.target(stage, lineage, param)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("failed to create publish directory: %w", err)
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := filepath.Join(target, filepath.Base(f.Path))
		if err := copyFile(f.Path, dst); err != nil {
			return fmt.Errorf("failed to publish %s for %s: %w", f.Path, lineage, err)
		}
	}
	ctxlog.FromContext(ctx).Debug("Published task outputs.", "stage", stage, "lineage", lineage, "param", param, "files", len(files), "target", target)
	return nil
}

// target resolves the task directory. Every component must be a non-empty
// local path.
func (d *Dir) target(stage, lineage, param string) (string, error) {
	parts := []string{stage, lineage}
	if param != "" {
		parts = append(parts, param)
	}
	for _, p := range parts {
		if p == "" || !filepath.IsLocal(p) {
			return "", fmt.Errorf("invalid publish path component %q", p)
		}
	}
	return filepath.Join(append([]string{d.Root}, parts...)...), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
