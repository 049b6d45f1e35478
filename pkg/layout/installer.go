// pkg/layout/installer.go
package layout

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/arc-language/layinstall/pkg/core"
)

// NewInstaller creates an installer writing to fsys. A nil logger discards
// all output.
func NewInstaller(fsys afero.Fs, cfg *core.InstallConfig, logger *log.Logger) *Installer {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Installer{
		fs:     fsys,
		config: cfg,
		logger: logger,
	}
}

// Install builds the plan for the installer's config and applies it.
func (i *Installer) Install(ctx context.Context) (*Report, error) {
	plan, err := NewPlan(i.config)
	if err != nil {
		return nil, err
	}
	return i.Apply(ctx, plan)
}

// Apply runs the plan phases in order: skeleton, markers, config rewrites,
// copies, system files, cleanup. The first error aborts the run and nothing
// already written is rolled back; the partial report is returned with it.
func (i *Installer) Apply(ctx context.Context, plan *Plan) (*Report, error) {
	i.report = &Report{}
	report := i.report

	i.logger.Info("creating directory skeleton", "dirs", len(plan.Dirs))
	for _, dir := range plan.Dirs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := i.fs.MkdirAll(dir, 0755); err != nil {
			return report, core.SystemCallError("mkdir", dir, err)
		}
		report.Dirs++
	}

	for _, marker := range plan.Markers {
		if err := i.writeText(marker, nil); err != nil {
			return report, err
		}
	}

	i.logger.Info("rewriting configuration", "files", len(plan.Rewrites))
	for _, rw := range plan.Rewrites {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := i.rewrite(rw); err != nil {
			return report, err
		}
	}

	i.logger.Info("copying files", "rules", len(plan.Copies))
	for _, rule := range plan.Copies {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := i.applyRule(rule); err != nil {
			return report, err
		}
	}

	for _, tf := range plan.TextFiles {
		if err := i.writeText(tf.Path, tf.Lines); err != nil {
			return report, err
		}
		i.logger.Debug("wrote", "path", tf.Path, "lines", len(tf.Lines))
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	i.logger.Info("cleaning up", "root", plan.CleanupRoot)
	if err := i.cleanup(plan.CleanupRoot, plan.Cleanup); err != nil {
		return report, err
	}
	for _, p := range plan.RemoveFiles {
		if err := i.removeIfPresent(p); err != nil {
			return report, err
		}
	}

	i.logger.Info("install complete", "files", report.Files, "bytes", report.Bytes, "removed", len(report.Removed))
	return report, nil
}

// writeText writes lines to p, replacing any existing content. No lines
// produces an empty file.
func (i *Installer) writeText(p string, lines []string) error {
	if err := i.fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return core.SystemCallError("mkdir", filepath.Dir(p), err)
	}
	var content string
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	if err := afero.WriteFile(i.fs, p, []byte(content), 0644); err != nil {
		return core.SystemCallError("write", p, err)
	}
	i.report.Files++
	return nil
}

// Describe writes a human readable listing of the plan to w.
func (p *Plan) Describe(w io.Writer) error {
	ew := &errWriter{w: w}
	ew.printf("directories:\n")
	for _, d := range p.Dirs {
		ew.printf("  mkdir -p %s\n", d)
	}
	ew.printf("markers:\n")
	for _, m := range p.Markers {
		ew.printf("  touch %s\n", m)
	}
	ew.printf("config rewrites:\n")
	for _, rw := range p.Rewrites {
		ew.printf("  %s -> %s\n", rw.Source, rw.Dest)
		for _, s := range rw.Substitutions {
			ew.printf("    s@%s@%s@\n", s.Pattern, s.Replacement)
		}
	}
	ew.printf("copies:\n")
	for _, r := range p.Copies {
		src := r.Source
		if r.Entries {
			src = filepath.Join(src, "*")
		}
		kind := "required"
		if !r.Required {
			kind = "optional"
		}
		ew.printf("  [%s] %s -> %s\n", kind, src, r.Dest)
	}
	ew.printf("system files:\n")
	for _, tf := range p.TextFiles {
		ew.printf("  %s\n", tf.Path)
		for _, l := range tf.Lines {
			ew.printf("    %s\n", l)
		}
	}
	ew.printf("cleanup under %s:\n", p.CleanupRoot)
	for _, r := range p.Cleanup {
		ew.printf("  %s (%s)\n", r.Name, r.Action)
	}
	for _, f := range p.RemoveFiles {
		ew.printf("  rm -f %s\n", f)
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
