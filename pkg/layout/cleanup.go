// pkg/layout/cleanup.go
package layout

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/arc-language/layinstall/pkg/core"
)

// cleanup walks root and applies the first matching rule to each entry.
// Removed directories are not descended into.
func (i *Installer) cleanup(root string, rules []CleanupRule) error {
	if len(rules) == 0 {
		return nil
	}
	if _, err := i.fs.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return core.SystemCallError("stat", root, err)
	}
	return i.cleanupDir(root, rules)
}

func (i *Installer) cleanupDir(dir string, rules []CleanupRule) error {
	entries, err := afero.ReadDir(i.fs, dir)
	if err != nil {
		return core.SystemCallError("readdir", dir, err)
	}

	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		isDir := entry.IsDir()

		removed := false
		for _, rule := range rules {
			if !rule.Match(entry.Name()) {
				continue
			}
			if rule.Action == RemoveFile && isDir {
				continue
			}
			if err := i.fs.RemoveAll(p); err != nil {
				return core.SystemCallError("remove", p, err)
			}
			i.logger.Debug("removed", "path", p, "rule", rule.Name)
			i.report.Removed = append(i.report.Removed, p)
			removed = true
			break
		}

		if !removed && isDir {
			if err := i.cleanupDir(p, rules); err != nil {
				return err
			}
		}
	}
	return nil
}

// removeIfPresent deletes a single file, treating absence as success.
func (i *Installer) removeIfPresent(p string) error {
	info, err := i.lstat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return core.SystemCallError("stat", p, err)
	}
	if info.IsDir() {
		return nil
	}
	if err := i.fs.Remove(p); err != nil && !os.IsNotExist(err) {
		return core.SystemCallError("remove", p, err)
	}
	i.logger.Debug("removed", "path", p)
	i.report.Removed = append(i.report.Removed, p)
	return nil
}
