package manifest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/liuxd6825/stylemap/lib/fsext"
	"github.com/liuxd6825/stylemap/pipeline"
)

// MapSuffix is appended to a module file name to find the source map a
// preprocessor left next to it.
const MapSuffix = ".map"

// LoadModules reads every module the entries reference from the root
// directory. A "<file>.map" next to a module is taken as its upstream source map.
func (m *Manifest) LoadModules(fs fsext.Fs, logger logrus.FieldLogger) ([]pipeline.Module, error) {
	root := m.RootDir()
	seen := make(map[string]struct{})
	var modules []pipeline.Module
	for _, e := range m.Entries {
		for _, id := range append(append([]string(nil), e.Imports...), e.Path) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}

			mod, err := loadModule(fs, root, id)
			if err != nil {
				return nil, err
			}
			logger.WithFields(logrus.Fields{"module": id, "upstreamMap": len(mod.Map) > 0}).Debug("Loaded module")
			modules = append(modules, mod)
		}
	}
	return modules, nil
}

func loadModule(fs fsext.Fs, root, id string) (pipeline.Module, error) {
	fileName := filepath.Join(root, filepath.FromSlash(stripQuery(id)))
	code, err := fsext.ReadFile(fs, fileName)
	if err != nil {
		return pipeline.Module{}, fmt.Errorf("reading module %s: %w", id, err)
	}
	upstream, err := fsext.ReadFileIfExists(fs, fileName+MapSuffix)
	if err != nil {
		return pipeline.Module{}, fmt.Errorf("reading the source map of module %s: %w", id, err)
	}
	return pipeline.Module{ID: id, Code: string(code), Map: upstream}, nil
}

func stripQuery(id string) string {
	if i := strings.IndexByte(id, '?'); i >= 0 {
		return id[:i]
	}
	return id
}
