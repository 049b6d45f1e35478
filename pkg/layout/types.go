// pkg/layout/types.go
package layout

import (
	"regexp"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/arc-language/layinstall/pkg/core"
)

// PathRule copies Source to Dest. When Entries is set, each top-level entry
// of Source is copied to Dest/<name> as its own operation (the "dir/*" form).
// Rules with Required unset are skipped when Source does not exist.
type PathRule struct {
	Source   string
	Dest     string
	Required bool
	Entries  bool
}

// Substitution replaces the first match of Pattern on a line with the literal
// Replacement.
type Substitution struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// ConfigRewrite streams Source to Dest line by line, applying every
// substitution to every line in order.
type ConfigRewrite struct {
	Source        string
	Dest          string
	Substitutions []Substitution
}

// Action is what a cleanup rule does to a matching path
type Action int

const (
	// RemoveFile deletes matching regular files only
	RemoveFile Action = iota
	// RemoveTree deletes matching files and directories recursively
	RemoveTree
)

func (a Action) String() string {
	switch a {
	case RemoveFile:
		return "remove-file"
	case RemoveTree:
		return "remove-tree"
	default:
		return "unknown"
	}
}

// CleanupRule pairs a name predicate with an action
type CleanupRule struct {
	Name   string
	Match  func(name string) bool
	Action Action
}

// TextFile is written fresh, one line per entry
type TextFile struct {
	Path  string
	Lines []string
}

// Plan is the declarative description of one install. Apply runs its phases
// in field order.
type Plan struct {
	Dirs        []string
	Markers     []string
	Rewrites    []ConfigRewrite
	Copies      []PathRule
	TextFiles   []TextFile
	CleanupRoot string
	Cleanup     []CleanupRule
	RemoveFiles []string
}

// Report summarizes what Apply did
type Report struct {
	Dirs    int      // Directories created by the skeleton step
	Files   int      // Regular files written (markers, rewrites, copies, text files)
	Bytes   int64    // Bytes copied
	Skipped []string // Optional sources that were absent
	Removed []string // Paths deleted by cleanup
}

// Installer applies plans to a filesystem
type Installer struct {
	fs     afero.Fs
	config *core.InstallConfig
	logger *log.Logger
	report *Report
}
