// pkg/source/types.go
package source

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// Format identifies how a build output tree is packed
type Format string

const (
	FormatDir    Format = "dir"
	FormatTar    Format = "tar"
	FormatTarGz  Format = "tar.gz"
	FormatTarXz  Format = "tar.xz"
	FormatTarZst Format = "tar.zst"
	FormatNar    Format = "nar"
	FormatNarXz  Format = "nar.xz"
	FormatGit    Format = "git"
)

// suffixes is checked in order, longest first
var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.xz", FormatTarXz},
	{".txz", FormatTarXz},
	{".tar.zst", FormatTarZst},
	{".tzst", FormatTarZst},
	{".tar", FormatTar},
	{".nar.xz", FormatNarXz},
	{".nar", FormatNar},
}

// DetectFormat picks the archive format from the file name. Unknown names
// return "".
func DetectFormat(name string) Format {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format
		}
	}
	return ""
}

// Source is a build output tree ready to install from
type Source struct {
	Dir    string // Root of the tree
	Format Format // How it was packed

	fs      afero.Fs
	scratch string // Temporary extraction or clone dir, "" for FormatDir
}

// Config configures source unpacking
type Config struct {
	TempDir string      // Parent for scratch dirs, "" for the system default
	Logger  *log.Logger // Custom logger
}

// stats counts extracted entries
type stats struct {
	files    int
	dirs     int
	symlinks int
	bytes    int64
}
