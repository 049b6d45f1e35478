package layout

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-language/layinstall/pkg/core"
)

const (
	outDir = "/build/built"
	srcDir = "/build"
	site   = "/usr/lib64/python3.11/site-packages"
)

// buildTree lays out a minimal build output and source tree.
func buildTree(t *testing.T, fsys afero.Fs) {
	t.Helper()
	files := map[string]string{
		outDir + "/etc/Config.prc":                        "model-cache-dir /foo\nmodel-path $THIS_PRC_DIR/..\nload-display pandagl\n",
		outDir + "/etc/Confauto.prc":                      "# auto\nload-file-type p3assimp\n",
		outDir + "/include/pandabase.h":                   "#define PANDA 1\n",
		outDir + "/pandac/PandaModules.py":                "from panda3d.core import *\n",
		outDir + "/models/smiley.egg":                     "<CoordinateSystem> { Z-up }\n",
		outDir + "/bin/pview":                             "\x7fELF-pview",
		outDir + "/bin/egg2bam":                           "\x7fELF-egg2bam",
		outDir + "/lib/libfoo.so":                         "\x7fELF-foo",
		outDir + "/lib/libbar.so":                         "\x7fELF-bar",
		srcDir + "/direct/src/showbase/ShowBase.py":       "class ShowBase: pass\n",
		srcDir + "/direct/src/showbase/CVS/Entries":       "/ShowBase.py/1.1///\n",
		srcDir + "/direct/src/showbase/.cvsignore":        "*.pyc\n",
		srcDir + "/direct/src/showbase/.#ShowBase.py.1.2": "old\n",
		srcDir + "/direct/src/showbase/showBase.cxx":      "int main() {}\n",
		srcDir + "/direct/src/showbase/showBase.h":        "#pragma once\n",
		srcDir + "/direct/src/showbase/showBase.I":        "inline\n",
		srcDir + "/direct/src/leveleditor/copyfiles.pl":   "#!/usr/bin/perl\n",
		srcDir + "/direct/src/leveleditor/LevelEditor.py": "pass\n",
		srcDir + "/doc/LICENSE":                           "BSD\n",
		srcDir + "/doc/ReleaseNotes":                      "1.0\n",
	}
	for p, content := range files {
		require.NoError(t, fsys.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, afero.WriteFile(fsys, p, []byte(content), 0644))
	}
}

func testConfig(destRoot string) *core.InstallConfig {
	return &core.InstallConfig{
		DestRoot:     destRoot,
		Prefix:       "/usr",
		OutputDir:    outDir,
		SourceDir:    srcDir,
		LibDir:       core.LibDir64,
		SitePackages: site,
		Cleanup:      core.DefaultCleanup(),
	}
}

func install(t *testing.T, fsys afero.Fs, cfg *core.InstallConfig) (*Report, error) {
	t.Helper()
	return NewInstaller(fsys, cfg, nil).Install(context.Background())
}

func readFile(t *testing.T, fsys afero.Fs, p string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, p)
	require.NoError(t, err, p)
	return string(data)
}

func TestInstallEndToEnd(t *testing.T) {
	fsys := afero.NewMemMapFs()
	buildTree(t, fsys)

	report, err := install(t, fsys, testConfig(""))
	require.NoError(t, err)

	config := readFile(t, fsys, "/etc/Config.prc")
	assert.Equal(t, "# model-cache-dir /foo\nmodel-path /usr/share/panda3d\nload-display pandagl\n", config)
	assert.Equal(t, "# auto\nload-file-type p3assimp\n", readFile(t, fsys, "/etc/Confauto.prc"))

	marker, err := fsys.Stat("/usr/share/panda3d/direct/__init__.py")
	require.NoError(t, err)
	assert.Zero(t, marker.Size())

	assert.Equal(t, "#define PANDA 1\n", readFile(t, fsys, "/usr/include/panda3d/pandabase.h"))
	assert.Equal(t, "BSD\n", readFile(t, fsys, "/usr/include/panda3d/LICENSE"))
	assert.Equal(t, "BSD\n", readFile(t, fsys, "/usr/share/panda3d/LICENSE"))
	assert.Equal(t, "1.0\n", readFile(t, fsys, "/usr/share/panda3d/ReleaseNotes"))
	assert.Equal(t, "class ShowBase: pass\n", readFile(t, fsys, "/usr/share/panda3d/direct/showbase/ShowBase.py"))
	assert.Equal(t, "from panda3d.core import *\n", readFile(t, fsys, "/usr/share/panda3d/pandac/PandaModules.py"))
	assert.Equal(t, "<CoordinateSystem> { Z-up }\n", readFile(t, fsys, "/usr/share/panda3d/models/smiley.egg"))
	assert.Equal(t, "\x7fELF-pview", readFile(t, fsys, "/usr/bin/pview"))
	assert.Equal(t, "\x7fELF-egg2bam", readFile(t, fsys, "/usr/bin/egg2bam"))

	assert.Equal(t, "/usr/lib64/panda3d\n", readFile(t, fsys, "/etc/ld.so.conf.d/panda3d.conf"))
	assert.Equal(t, "/usr/share/panda3d\n/usr/lib64/panda3d\n", readFile(t, fsys, site+"/panda3d.pth"))

	for _, dir := range []string{"/usr/lib64/python3.11/lib-dynload", site, "/usr/include"} {
		ok, err := afero.DirExists(fsys, dir)
		require.NoError(t, err)
		assert.True(t, ok, dir)
	}

	assert.ElementsMatch(t, []string{outDir + "/Pmw", outDir + "/plugins", srcDir + "/samples"}, report.Skipped)
	assert.Positive(t, report.Bytes)
}

func TestInstallLibraryEntriesExact(t *testing.T) {
	fsys := afero.NewMemMapFs()
	buildTree(t, fsys)

	_, err := install(t, fsys, testConfig(""))
	require.NoError(t, err)

	entries, err := afero.ReadDir(fsys, "/usr/lib64/panda3d")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"libbar.so", "libfoo.so"}, names)
	assert.Equal(t, "\x7fELF-foo", readFile(t, fsys, "/usr/lib64/panda3d/libfoo.so"))
	assert.Equal(t, "\x7fELF-bar", readFile(t, fsys, "/usr/lib64/panda3d/libbar.so"))
}

func TestInstallUnderDestRoot(t *testing.T) {
	fsys := afero.NewMemMapFs()
	buildTree(t, fsys)

	_, err := install(t, fsys, testConfig("/tmp/stage/"))
	require.NoError(t, err)

	ok, err := afero.Exists(fsys, "/tmp/stage/etc/Config.prc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = afero.Exists(fsys, "/etc/Config.prc")
	require.NoError(t, err)
	assert.False(t, ok, "nothing lands outside the destination root")

	// installed paths inside generated files never carry the staging root
	assert.Equal(t, "/usr/lib64/panda3d\n", readFile(t, fsys, "/tmp/stage/etc/ld.so.conf.d/panda3d.conf"))
	assert.Contains(t, readFile(t, fsys, "/tmp/stage/etc/Config.prc"), "model-path /usr/share/panda3d\n")
	assert.Equal(t, "\x7fELF-foo", readFile(t, fsys, "/tmp/stage/usr/lib64/panda3d/libfoo.so"))
}

func TestInstallOptionalComponents(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		buildTree(t, fsys)

		_, err := install(t, fsys, testConfig(""))
		require.NoError(t, err)

		ok, err := afero.Exists(fsys, "/usr/share/panda3d/Pmw")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("present", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		buildTree(t, fsys)
		require.NoError(t, fsys.MkdirAll(outDir+"/Pmw/lib", 0755))
		require.NoError(t, afero.WriteFile(fsys, outDir+"/Pmw/__init__.py", []byte("# Pmw\n"), 0644))
		require.NoError(t, afero.WriteFile(fsys, outDir+"/Pmw/lib/PmwBase.py", []byte("base\n"), 0644))
		require.NoError(t, fsys.MkdirAll(srcDir+"/samples/Roaming-Ralph", 0755))
		require.NoError(t, afero.WriteFile(fsys, srcDir+"/samples/Roaming-Ralph/main.py", []byte("run()\n"), 0644))

		report, err := install(t, fsys, testConfig(""))
		require.NoError(t, err)

		assert.Equal(t, "# Pmw\n", readFile(t, fsys, "/usr/share/panda3d/Pmw/__init__.py"))
		assert.Equal(t, "base\n", readFile(t, fsys, "/usr/share/panda3d/Pmw/lib/PmwBase.py"))
		assert.Equal(t, "run()\n", readFile(t, fsys, "/usr/share/panda3d/samples/Roaming-Ralph/main.py"))
		assert.Equal(t, []string{outDir + "/plugins"}, report.Skipped)
	})
}

func TestInstallCleanup(t *testing.T) {
	fsys := afero.NewMemMapFs()
	buildTree(t, fsys)

	report, err := install(t, fsys, testConfig(""))
	require.NoError(t, err)

	gone := []string{
		"/usr/share/panda3d/direct/showbase/CVS",
		"/usr/share/panda3d/direct/showbase/.cvsignore",
		"/usr/share/panda3d/direct/showbase/.#ShowBase.py.1.2",
		"/usr/share/panda3d/direct/showbase/showBase.cxx",
		"/usr/share/panda3d/direct/showbase/showBase.h",
		"/usr/share/panda3d/direct/showbase/showBase.I",
		"/usr/share/panda3d/direct/leveleditor/copyfiles.pl",
	}
	for _, p := range gone {
		ok, err := afero.Exists(fsys, p)
		require.NoError(t, err)
		assert.False(t, ok, p)
		assert.Contains(t, report.Removed, p)
	}

	kept := []string{
		"/usr/share/panda3d/direct/showbase/ShowBase.py",
		"/usr/share/panda3d/direct/leveleditor/LevelEditor.py",
		"/usr/include/panda3d/pandabase.h",
	}
	for _, p := range kept {
		ok, err := afero.Exists(fsys, p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}

	// nothing left under the share tree matches a cleanup rule
	rules := CleanupRules(core.DefaultCleanup())
	err = afero.Walk(fsys, "/usr/share/panda3d", func(p string, info fs.FileInfo, err error) error {
		require.NoError(t, err)
		for _, r := range rules {
			if r.Match(info.Name()) && (r.Action == RemoveTree || !info.IsDir()) {
				t.Errorf("%s survived cleanup rule %q", p, r.Name)
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestInstallMissingRequiredSource(t *testing.T) {
	fsys := afero.NewMemMapFs()
	buildTree(t, fsys)
	require.NoError(t, fsys.RemoveAll(outDir+"/models"))

	report, err := install(t, fsys, testConfig(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingSource))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), outDir+"/models")

	// earlier steps stay on disk
	assert.Equal(t, "#define PANDA 1\n", readFile(t, fsys, "/usr/include/panda3d/pandabase.h"))
	assert.Contains(t, readFile(t, fsys, "/etc/Config.prc"), "# model-cache-dir")

	// cleanup never ran
	ok, err := afero.Exists(fsys, "/usr/share/panda3d/direct/showbase/CVS/Entries")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, report.Removed)

	// later steps never ran
	ok, err = afero.Exists(fsys, "/etc/ld.so.conf.d/panda3d.conf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstallMissingConfig(t *testing.T) {
	fsys := afero.NewMemMapFs()
	buildTree(t, fsys)
	require.NoError(t, fsys.Remove(outDir+"/etc/Config.prc"))

	_, err := install(t, fsys, testConfig(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingSource))
}

func TestInstallReadOnlyFilesystem(t *testing.T) {
	base := afero.NewMemMapFs()
	buildTree(t, base)

	_, err := install(t, afero.NewReadOnlyFs(base), testConfig(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSystemCall))
}

func TestInstallOverwritesMarker(t *testing.T) {
	fsys := afero.NewMemMapFs()
	buildTree(t, fsys)
	require.NoError(t, fsys.MkdirAll("/usr/share/panda3d/direct", 0755))
	require.NoError(t, afero.WriteFile(fsys, "/usr/share/panda3d/direct/__init__.py", []byte("stale"), 0644))

	_, err := install(t, fsys, testConfig(""))
	require.NoError(t, err)
	assert.Empty(t, readFile(t, fsys, "/usr/share/panda3d/direct/__init__.py"))
}

func TestInstallTwiceIsStable(t *testing.T) {
	fsys := afero.NewMemMapFs()
	buildTree(t, fsys)

	_, err := install(t, fsys, testConfig(""))
	require.NoError(t, err)
	_, err = install(t, fsys, testConfig(""))
	require.NoError(t, err)

	// .pth is rewritten, not appended to
	assert.Equal(t, "/usr/share/panda3d\n/usr/lib64/panda3d\n", readFile(t, fsys, site+"/panda3d.pth"))
}

func TestInstallCancelled(t *testing.T) {
	fsys := afero.NewMemMapFs()
	buildTree(t, fsys)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewInstaller(fsys, testConfig(""), nil).Install(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInstallLogs(t *testing.T) {
	fsys := afero.NewMemMapFs()
	buildTree(t, fsys)

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	_, err := NewInstaller(fsys, testConfig(""), logger).Install(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "install complete")
	assert.Contains(t, buf.String(), "optional source absent")
}

func TestInstallRejectsBadLibDir(t *testing.T) {
	cfg := testConfig("")
	cfg.LibDir = "/lib32"
	_, err := install(t, afero.NewMemMapFs(), cfg)
	assert.ErrorIs(t, err, core.ErrPrecondition)
}

func TestInstallPreservesSymlinksOnDisk(t *testing.T) {
	root := t.TempDir()
	fsys := afero.NewBasePathFs(afero.NewOsFs(), root)
	buildTree(t, fsys)
	require.NoError(t, os.Symlink("libfoo.so", filepath.Join(root, outDir, "lib", "libfoo.so.1")))
	require.NoError(t, os.Chmod(filepath.Join(root, outDir, "bin", "pview"), 0755))

	_, err := install(t, afero.NewOsFs(), rooted(root))
	require.NoError(t, err)

	link, err := os.Readlink(filepath.Join(root, "stage/usr/lib64/panda3d/libfoo.so.1"))
	require.NoError(t, err)
	assert.Equal(t, "libfoo.so", link)

	info, err := os.Stat(filepath.Join(root, "stage/usr/bin/pview"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

// rooted points the test layout at a real directory, staging under root/stage.
func rooted(root string) *core.InstallConfig {
	cfg := testConfig(filepath.Join(root, "stage"))
	cfg.OutputDir = filepath.Join(root, outDir)
	cfg.SourceDir = filepath.Join(root, srcDir)
	return cfg
}
