package cli

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/ardnew/shale/pkg"
)

// baseConfig is the base name of the configuration file.
const baseConfig = "config"

// defaultDirMode is the permission mode for created runtime directories.
var defaultDirMode os.FileMode = 0o700

// basePrefix names the per-user subdirectory under the config and cache
// roots. It derives from the executable's base name, with two fixups:
// dlv's "__debug_bin" output maps back to the canonical command name, and
// leading dots are stripped.
var basePrefix = sync.OnceValue(
	func() string {
		id := os.Args[0]
		if exe, err := os.Executable(); err == nil {
			id = exe
		}

		id = filepath.Base(id)
		id = strings.TrimSuffix(id, filepath.Ext(id))

		for rex, rep := range map[*regexp.Regexp]string{
			regexp.MustCompile(`^__debug_bin\d+$`): pkg.Name,
			regexp.MustCompile(`^\.+`):             "",
		} {
			id = rex.ReplaceAllString(id, rep)
		}

		return id
	},
)

// userDir resolves a per-user root via lookup, falling back to a dotted
// subdirectory of the home directory, then the working directory.
func userDir(lookup func() (string, error), dotted string) string {
	dir, err := lookup()
	if err == nil {
		return filepath.Join(dir, basePrefix())
	}

	if home, herr := os.UserHomeDir(); herr == nil {
		return filepath.Join(home, dotted, basePrefix())
	}

	if wd, werr := os.Getwd(); werr == nil {
		return filepath.Join(wd, basePrefix())
	}

	return filepath.Join(".", basePrefix())
}

// configDir is the directory holding persistent configuration.
var configDir = sync.OnceValue(
	func() string { return userDir(os.UserConfigDir, ".config") },
)

// cacheDir is the directory holding transient files such as session history.
var cacheDir = sync.OnceValue(
	func() string { return userDir(os.UserCacheDir, ".cache") },
)

// configPath joins elem onto the configuration directory. With no elements
// it is the directory itself.
func configPath(elem ...string) string {
	return filepath.Join(append([]string{configDir()}, elem...)...)
}

// mkdirAllRequired creates the runtime directories the CLI expects to exist.
func mkdirAllRequired() error {
	for _, dir := range []string{configDir(), cacheDir()} {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return err
		}
	}

	return nil
}
