// Package artifact stores exported tables. Keys are slash-separated paths
// relative to the sink root, e.g. "dme/bom_20240101120000.csv".
package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Sink writes one artifact and returns where it landed. Delete removes an
// artifact written by Put; a missing key is not an error.
type Sink interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// LocalSink writes artifacts under a filesystem root. Files appear
// atomically: content goes to a temp file that is renamed into place.
type LocalSink struct {
	Root string
}

// NewLocalSink returns a sink rooted at dir.
func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{Root: dir}
}

func (s *LocalSink) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	rel, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "artifact: put")
	}

	dst := filepath.Join(s.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", eris.Wrapf(err, "artifact: create dir for %s", key)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-"+filepath.Base(dst)+"-*")
	if err != nil {
		return "", eris.Wrapf(err, "artifact: create temp for %s", key)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", eris.Wrapf(err, "artifact: write %s", key)
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrapf(err, "artifact: close %s", key)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", eris.Wrapf(err, "artifact: rename %s", key)
	}
	return dst, nil
}

// Delete removes the file for key and any directories left empty by it,
// stopping at the sink root.
func (s *LocalSink) Delete(_ context.Context, key string) error {
	rel, err := cleanKey(key)
	if err != nil {
		return err
	}
	dst := filepath.Join(s.Root, filepath.FromSlash(rel))
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "artifact: delete %s", key)
	}

	root := filepath.Clean(s.Root)
	for dir := filepath.Dir(dst); dir != root && strings.HasPrefix(dir, root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// cleanKey normalizes a key and rejects ones escaping the sink root.
func cleanKey(key string) (string, error) {
	k := strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+key)), "/")
	if k == "" || k == "." {
		return "", eris.Errorf("artifact: empty key %q", key)
	}
	if k != strings.TrimPrefix(filepath.ToSlash(key), "./") {
		return "", eris.Errorf("artifact: key %q is not a clean relative path", key)
	}
	return k, nil
}
