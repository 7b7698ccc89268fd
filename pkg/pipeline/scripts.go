package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/topdraw/topdraw/pkg/errors"
)

// ScriptExt is the file extension of wallpaper scripts.
const ScriptExt = ".tds"

// Script is a script file on disk.
type Script struct {
	Name string // File name without extension
	Path string
}

// Load reads the script's source.
func (s Script) Load() (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNotFound, err, "read script %s", s.Path)
	}
	return string(data), nil
}

// ScriptFromPath describes the script at path, naming it after the file.
func ScriptFromPath(path string) Script {
	base := filepath.Base(path)
	return Script{Name: strings.TrimSuffix(base, filepath.Ext(base)), Path: path}
}

// ScriptsInDirectory lists the *.tds files directly inside dir, sorted by
// name. Subdirectories and hidden files are skipped.
func ScriptsInDirectory(dir string) ([]Script, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "list scripts in %s", dir)
	}
	var scripts []Script
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ScriptExt) {
			continue
		}
		scripts = append(scripts, ScriptFromPath(filepath.Join(dir, name)))
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
	return scripts, nil
}
