// pkg/platform/destroot.go
package platform

import (
	"errors"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"

	"github.com/arc-language/layinstall/pkg/core"
)

// CheckDestRoot verifies a staging root before anything is written. An empty
// root is the live filesystem and always passes. Writability is only checked
// on the OS filesystem.
func CheckDestRoot(fsys afero.Fs, destRoot string) error {
	if destRoot == "" {
		return nil
	}
	info, err := fsys.Stat(destRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return core.PreconditionError("check destination root", destRoot, err)
		}
		return core.SystemCallError("stat", destRoot, err)
	}
	if !info.IsDir() {
		return core.PreconditionError("check destination root", destRoot, errors.New("not a directory"))
	}
	if _, ok := fsys.(*afero.OsFs); ok && !isWritable(destRoot) {
		return core.PreconditionError("check destination root", destRoot, errors.New("not writable"))
	}
	return nil
}

func isWritable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}
