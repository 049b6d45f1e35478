// pkg/source/checkout.go
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/afero"

	"github.com/arc-language/layinstall/pkg/core"
)

var remotePrefixes = []string{"https://", "http://", "ssh://", "git://", "git@", "file://"}

// IsRemote reports whether s names a git repository rather than a local
// directory.
func IsRemote(s string) bool {
	for _, p := range remotePrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return strings.HasSuffix(s, ".git")
}

// Checkout shallow-clones the source tree at ref (branch or tag, "" for the
// remote HEAD) into a scratch directory on the OS filesystem. Close removes
// it.
func Checkout(ctx context.Context, url, ref string, cfg *Config) (*Source, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	fsys := afero.NewOsFs()
	scratch, err := afero.TempDir(fsys, cfg.TempDir, "layinstall-src-")
	if err != nil {
		return nil, core.SystemCallError("tempdir", cfg.TempDir, err)
	}
	src := &Source{Dir: scratch, Format: FormatGit, fs: fsys, scratch: scratch}

	logger.Info("cloning source tree", "url", url, "ref", ref)
	var cloneErr error
	for _, name := range candidateRefs(ref) {
		if err := ctx.Err(); err != nil {
			src.Close()
			return nil, err
		}
		cloneErr = clone(ctx, scratch, url, name)
		if cloneErr == nil {
			return src, nil
		}
		// A failed attempt can leave a partial .git behind
		if err := resetDir(scratch); err != nil {
			src.Close()
			return nil, err
		}
	}
	src.Close()
	if errors.Is(cloneErr, plumbing.ErrReferenceNotFound) {
		return nil, core.MissingSourceError("clone", url, fmt.Errorf("ref %q: %w", ref, cloneErr))
	}
	return nil, core.SystemCallError("clone", url, cloneErr)
}

func clone(ctx context.Context, dir, url string, ref plumbing.ReferenceName) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: ref,
		SingleBranch:  true,
		Depth:         1,
		Tags:          git.NoTags,
	})
	return err
}

// candidateRefs lists the references ref may name, most likely first
func candidateRefs(ref string) []plumbing.ReferenceName {
	switch {
	case ref == "":
		return []plumbing.ReferenceName{""}
	case strings.HasPrefix(ref, "refs/"):
		return []plumbing.ReferenceName{plumbing.ReferenceName(ref)}
	default:
		return []plumbing.ReferenceName{
			plumbing.NewBranchReferenceName(ref),
			plumbing.NewTagReferenceName(ref),
		}
	}
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return core.SystemCallError("remove", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return core.SystemCallError("mkdir", dir, err)
	}
	return nil
}
