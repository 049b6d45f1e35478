// pkg/source/source.go
package source

import (
	"archive/tar"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"
	"zombiezen.com/go/nix/nar"

	"github.com/arc-language/layinstall/pkg/core"
)

// Open prepares the build output at path. Directories are used in place;
// archives are unpacked into a scratch directory on fsys that Close removes.
// An archive holding a single top-level directory resolves to that
// directory.
func Open(ctx context.Context, fsys afero.Fs, path string, cfg *Config) (*Source, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	info, err := fsys.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.MissingSourceError("open source", path, err)
		}
		return nil, core.SystemCallError("open source", path, err)
	}
	if info.IsDir() {
		return &Source{Dir: path, Format: FormatDir, fs: fsys}, nil
	}

	format := DetectFormat(path)
	if format == "" {
		return nil, core.PreconditionError("open source", path, errors.New("not a directory or a supported archive"))
	}

	scratch, err := afero.TempDir(fsys, cfg.TempDir, "layinstall-")
	if err != nil {
		return nil, core.SystemCallError("tempdir", cfg.TempDir, err)
	}
	src := &Source{Dir: scratch, Format: format, fs: fsys, scratch: scratch}

	logger.Info("unpacking build output", "archive", path, "format", format)
	st, err := unpack(ctx, fsys, path, format, scratch, logger)
	if err != nil {
		src.Close()
		return nil, err
	}
	logger.Info("unpacked", "files", st.files, "dirs", st.dirs, "symlinks", st.symlinks, "bytes", st.bytes)

	dir, err := singleTopLevelDir(fsys, scratch)
	if err != nil {
		src.Close()
		return nil, err
	}
	src.Dir = dir
	return src, nil
}

// Close removes the scratch directory, if any
func (s *Source) Close() error {
	if s.scratch == "" {
		return nil
	}
	return s.fs.RemoveAll(s.scratch)
}

func unpack(ctx context.Context, fsys afero.Fs, path string, format Format, dest string, logger *log.Logger) (*stats, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, core.SystemCallError("open", path, err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	case FormatTarXz, FormatNarXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating xz reader: %w", err)
		}
		r = xr
	case FormatTarZst:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd init: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	x := &extractor{ctx: ctx, fs: fsys, dest: dest, logger: logger, stats: &stats{}}
	switch format {
	case FormatNar, FormatNarXz:
		err = x.extractNAR(r)
	default:
		err = x.extractTar(r)
	}
	if err != nil {
		return nil, err
	}
	return x.stats, nil
}

type extractor struct {
	ctx    context.Context
	fs     afero.Fs
	dest   string
	logger *log.Logger
	stats  *stats
}

// target maps an archive member name into dest, refusing names that escape it.
// Leading slashes are dropped.
func (x *extractor) target(name string) (string, error) {
	clean := strings.TrimLeft(filepath.Clean(name), "/")
	if clean == "" || clean == "." {
		return x.dest, nil
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", core.PreconditionError("unpack", name, errors.New("archive member escapes the extraction root"))
	}
	return filepath.Join(x.dest, clean), nil
}

func (x *extractor) extractTar(r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		if err := x.ctx.Err(); err != nil {
			return err
		}
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		// target does its own path checks
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		target, err := x.target(header.Name)
		if err != nil {
			return err
		}
		if err := x.checkParents(target); err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			err = x.mkdir(target)
		case tar.TypeReg:
			err = x.writeFile(target, tr, os.FileMode(header.Mode).Perm(), header.Size)
		case tar.TypeSymlink:
			err = x.symlink(header.Linkname, target)
		default:
			x.logger.Warn("skipping unsupported tar entry", "name", header.Name, "type", header.Typeflag)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (x *extractor) extractNAR(r io.Reader) error {
	nr := nar.NewReader(r)
	for {
		if err := x.ctx.Err(); err != nil {
			return err
		}
		hdr, err := nr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading NAR entry: %w", err)
		}

		target, err := x.target(hdr.Path)
		if err != nil {
			return err
		}
		if err := x.checkParents(target); err != nil {
			return err
		}

		switch hdr.Mode.Type() {
		case os.ModeDir:
			err = x.mkdir(target)
		case os.ModeSymlink:
			err = x.symlink(hdr.LinkTarget, target)
		case 0:
			perm := os.FileMode(0644)
			if hdr.Mode&0111 != 0 {
				perm = 0755
			}
			err = x.writeFile(target, nr, perm, hdr.Size)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (x *extractor) mkdir(target string) error {
	if err := x.fs.MkdirAll(target, 0755); err != nil {
		return core.SystemCallError("mkdir", target, err)
	}
	x.stats.dirs++
	return nil
}

func (x *extractor) writeFile(target string, r io.Reader, perm os.FileMode, size int64) error {
	if err := x.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return core.SystemCallError("mkdir", filepath.Dir(target), err)
	}
	// An earlier member may have left a link here; replace it rather than
	// write through it
	if info, err := x.lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := x.fs.Remove(target); err != nil {
			return core.SystemCallError("remove", target, err)
		}
	}
	out, err := x.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return core.SystemCallError("create", target, err)
	}
	written, err := io.Copy(out, r)
	out.Close()
	if err != nil {
		return core.SystemCallError("write", target, err)
	}
	if written != size {
		return fmt.Errorf("file size mismatch for %s: expected %d, got %d", target, size, written)
	}
	x.stats.files++
	x.stats.bytes += written
	return nil
}

func (x *extractor) symlink(linkname, target string) error {
	linker, ok := x.fs.(afero.Linker)
	if !ok {
		x.logger.Warn("filesystem has no symlinks, skipping", "path", target, "target", linkname)
		return nil
	}
	if err := x.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return core.SystemCallError("mkdir", filepath.Dir(target), err)
	}
	x.fs.Remove(target)
	if err := linker.SymlinkIfPossible(linkname, target); err != nil {
		return core.SystemCallError("symlink", target, err)
	}
	x.stats.symlinks++
	return nil
}

// checkParents refuses targets whose directories below dest are symlinks
// laid down by earlier members, since writing through them could land
// outside dest.
func (x *extractor) checkParents(target string) error {
	rel, err := filepath.Rel(x.dest, filepath.Dir(target))
	if err != nil || rel == "." {
		return nil
	}
	dir := x.dest
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		dir = filepath.Join(dir, part)
		info, err := x.lstat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return core.SystemCallError("stat", dir, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return core.PreconditionError("unpack", target, fmt.Errorf("parent %s is a symlink", dir))
		}
	}
	return nil
}

func (x *extractor) lstat(name string) (os.FileInfo, error) {
	if l, ok := x.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(name)
		return info, err
	}
	return x.fs.Stat(name)
}

// singleTopLevelDir descends into root when it holds exactly one directory
// and nothing else.
func singleTopLevelDir(fsys afero.Fs, root string) (string, error) {
	entries, err := afero.ReadDir(fsys, root)
	if err != nil {
		return "", core.SystemCallError("readdir", root, err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(root, entries[0].Name()), nil
	}
	return root, nil
}
