// pkg/layout/plan.go
package layout

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/arc-language/layinstall/pkg/core"
)

const (
	// MarkerName marks a directory as an importable package root
	MarkerName = "__init__.py"

	// ConfigFile is rewritten on install, AutoConfigFile is copied verbatim
	ConfigFile     = "Config.prc"
	AutoConfigFile = "Confauto.prc"

	modelCacheToken = "model-cache-"
	prcDirToken     = "$THIS_PRC_DIR/.."
)

// NewPlan builds the install plan for a normalized config
func NewPlan(cfg *core.InstallConfig) (*Plan, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	share := cfg.ShareDir()
	lib := cfg.LibraryDir()
	include := cfg.IncludeDir()
	site := path.Clean(cfg.SitePackages)
	at := cfg.Staged

	p := &Plan{
		Dirs: []string{
			at(path.Join(cfg.Prefix, "bin")),
			at(path.Join(cfg.Prefix, "include")),
			at(share),
			at(path.Join(share, "direct")),
			at(lib),
			at(path.Join(path.Dir(site), "lib-dynload")),
			at(site),
			at("/etc/ld.so.conf.d"),
		},
		Markers: []string{
			at(path.Join(share, "direct", MarkerName)),
		},
		Rewrites: []ConfigRewrite{{
			Source:        cfg.OutputPath("etc", ConfigFile),
			Dest:          at(path.Join("/etc", ConfigFile)),
			Substitutions: ConfigSubstitutions(share),
		}},
		TextFiles: []TextFile{
			{Path: at(path.Join("/etc/ld.so.conf.d", cfg.Product+".conf")), Lines: []string{lib}},
			{Path: at(path.Join(site, cfg.Product+".pth")), Lines: []string{share, lib}},
		},
		CleanupRoot: at(share),
		Cleanup:     CleanupRules(cfg.Cleanup),
	}

	required := func(src, dst string, entries bool) {
		p.Copies = append(p.Copies, PathRule{Source: src, Dest: dst, Required: true, Entries: entries})
	}
	optional := func(src, dst string) {
		p.Copies = append(p.Copies, PathRule{Source: src, Dest: dst})
	}

	required(cfg.OutputPath("etc", AutoConfigFile), at(path.Join("/etc", AutoConfigFile)), false)
	required(cfg.OutputPath("include"), at(include), false)
	required(cfg.SourcePath("direct", "src"), at(path.Join(share, "direct")), true)
	required(cfg.OutputPath("pandac"), at(path.Join(share, "pandac")), false)
	required(cfg.OutputPath("models"), at(path.Join(share, "models")), false)
	required(cfg.SourcePath("doc", "LICENSE"), at(path.Join(share, "LICENSE")), false)
	required(cfg.SourcePath("doc", "LICENSE"), at(path.Join(include, "LICENSE")), false)
	required(cfg.SourcePath("doc", "ReleaseNotes"), at(path.Join(share, "ReleaseNotes")), false)
	required(cfg.OutputPath("bin"), at(path.Join(cfg.Prefix, "bin")), true)
	required(cfg.OutputPath("lib"), at(lib), true)

	optional(cfg.SourcePath("samples"), at(path.Join(share, "samples")))
	optional(cfg.OutputPath("Pmw"), at(path.Join(share, "Pmw")))
	optional(cfg.OutputPath("plugins"), at(path.Join(share, "plugins")))

	for _, rel := range cfg.Cleanup.RemoveFiles {
		p.RemoveFiles = append(p.RemoveFiles, at(path.Join(share, filepath.ToSlash(rel))))
	}

	return p, nil
}

// ConfigSubstitutions comments out model cache settings and points the
// config-relative root at the installed share directory.
func ConfigSubstitutions(shareDir string) []Substitution {
	return []Substitution{
		{Pattern: regexp.MustCompile(regexp.QuoteMeta(modelCacheToken)), Replacement: "# " + modelCacheToken},
		{Pattern: regexp.MustCompile(regexp.QuoteMeta(prcDirToken)), Replacement: shareDir},
	}
}

// CleanupRules turns the cleanup config into rules. VCS names ending in "*"
// match by prefix.
func CleanupRules(c core.CleanupConfig) []CleanupRule {
	var rules []CleanupRule
	if len(c.VCSNames) > 0 {
		names := append([]string(nil), c.VCSNames...)
		rules = append(rules, CleanupRule{
			Name:   "vcs metadata",
			Match:  func(name string) bool { return matchNames(names, name) },
			Action: RemoveTree,
		})
	}
	if len(c.ExcludedExtensions) > 0 {
		exts := append([]string(nil), c.ExcludedExtensions...)
		rules = append(rules, CleanupRule{
			Name:   "excluded extensions",
			Match:  func(name string) bool { return matchExtensions(exts, name) },
			Action: RemoveFile,
		})
	}
	return rules
}

func matchNames(names []string, name string) bool {
	for _, n := range names {
		if prefix, ok := strings.CutSuffix(n, "*"); ok {
			if strings.HasPrefix(name, prefix) {
				return true
			}
		} else if n == name {
			return true
		}
	}
	return false
}

// matchExtensions is case sensitive: ".I" (inline headers) is not ".i".
func matchExtensions(exts []string, name string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
