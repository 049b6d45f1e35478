// pkg/layout/copy.go
package layout

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/arc-language/layinstall/pkg/core"
)

// applyRule runs one PathRule. A missing optional source is recorded and
// skipped; a missing required source aborts.
func (i *Installer) applyRule(rule PathRule) error {
	info, err := i.fs.Stat(rule.Source)
	if err != nil {
		if !os.IsNotExist(err) {
			return core.SystemCallError("stat", rule.Source, err)
		}
		if rule.Required {
			return core.MissingSourceError("copy", rule.Source, err)
		}
		i.logger.Debug("optional source absent, skipping", "src", rule.Source)
		i.report.Skipped = append(i.report.Skipped, rule.Source)
		return nil
	}

	if !rule.Entries {
		i.logger.Debug("copying", "src", rule.Source, "dst", rule.Dest)
		return i.copyPath(rule.Source, rule.Dest)
	}

	if !info.IsDir() {
		return core.SystemCallError("copy", rule.Source, fmt.Errorf("not a directory"))
	}
	entries, err := afero.ReadDir(i.fs, rule.Source)
	if err != nil {
		return core.SystemCallError("readdir", rule.Source, err)
	}
	if err := i.fs.MkdirAll(rule.Dest, 0755); err != nil {
		return core.SystemCallError("mkdir", rule.Dest, err)
	}
	for _, entry := range entries {
		src := filepath.Join(rule.Source, entry.Name())
		dst := filepath.Join(rule.Dest, entry.Name())
		i.logger.Debug("copying", "src", src, "dst", dst)
		if err := i.copyPath(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// copyPath copies src to dst recursively. Directories merge into an existing
// dst; files overwrite.
func (i *Installer) copyPath(src, dst string) error {
	info, err := i.lstat(src)
	if err != nil {
		return core.SystemCallError("stat", src, err)
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return i.copySymlink(src, dst)
	case info.IsDir():
		return i.copyDir(src, dst, info.Mode().Perm())
	case info.Mode().IsRegular():
		return i.copyFile(src, dst, info.Mode().Perm())
	default:
		i.logger.Warn("skipping unsupported file type", "path", src, "mode", info.Mode().Type())
		return nil
	}
}

func (i *Installer) copyDir(src, dst string, perm os.FileMode) error {
	if err := i.fs.MkdirAll(dst, perm|0700); err != nil {
		return core.SystemCallError("mkdir", dst, err)
	}

	entries, err := afero.ReadDir(i.fs, src)
	if err != nil {
		return core.SystemCallError("readdir", src, err)
	}

	for _, entry := range entries {
		if err := i.copyPath(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (i *Installer) copyFile(src, dst string, perm os.FileMode) error {
	in, err := i.fs.Open(src)
	if err != nil {
		return core.SystemCallError("open", src, err)
	}
	defer in.Close()

	if err := i.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return core.SystemCallError("mkdir", filepath.Dir(dst), err)
	}

	out, err := i.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return core.SystemCallError("create", dst, err)
	}

	written, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return core.SystemCallError("write", dst, err)
	}

	// OpenFile leaves the mode of an existing file alone
	if err := i.fs.Chmod(dst, perm); err != nil {
		return core.SystemCallError("chmod", dst, err)
	}

	i.report.Files++
	i.report.Bytes += written
	return nil
}

// copySymlink recreates a link when the filesystem can, and otherwise copies
// what it points to.
func (i *Installer) copySymlink(src, dst string) error {
	reader, canRead := i.fs.(afero.LinkReader)
	linker, canLink := i.fs.(afero.Linker)
	if canRead && canLink {
		target, err := reader.ReadlinkIfPossible(src)
		if err != nil {
			return core.SystemCallError("readlink", src, err)
		}
		if err := i.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return core.SystemCallError("mkdir", filepath.Dir(dst), err)
		}
		if err := i.fs.Remove(dst); err != nil && !os.IsNotExist(err) {
			return core.SystemCallError("remove", dst, err)
		}
		if err := linker.SymlinkIfPossible(target, dst); err != nil {
			return core.SystemCallError("symlink", dst, err)
		}
		return nil
	}

	info, err := i.fs.Stat(src)
	if err != nil {
		return core.SystemCallError("stat", src, err)
	}
	if info.IsDir() {
		return i.copyDir(src, dst, info.Mode().Perm())
	}
	return i.copyFile(src, dst, info.Mode().Perm())
}

func (i *Installer) lstat(name string) (os.FileInfo, error) {
	if l, ok := i.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(name)
		return info, err
	}
	return i.fs.Stat(name)
}
