package cssmap

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/liuxd6825/stylemap/pipeline"
	"github.com/liuxd6825/stylemap/sourcemap"
)

// registerModuleMap emits the source map of a style module as an asset of
// its own and remembers it for the merge. Modules without a usable map get
// an identity map.
func (bc *buildContext) registerModuleMap(
	ctx context.Context, pc pipeline.PluginContext, code, id string,
) (*pipeline.TransformResult, error) {
	if !pipeline.HasExtension(id, bc.extensions) {
		return nil, bc.enter(phaseCollectingMaps)
	}
	if err := bc.enter(phaseCollectingMaps); err != nil {
		return nil, err
	}
	logger := bc.logger.WithField("module", id)

	m, synthesized := bc.moduleMap(logger, pc.AccumulatedMap(id), code, id)
	m.GeneratedLines = strings.Count(code, "\n") + 1
	b, err := m.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding the source map of %s: %w", id, err)
	}

	h, err := pc.EmitAsset(ctx, pipeline.EmittedAsset{Name: moduleMapName(id), Source: b})
	if err != nil {
		return nil, fmt.Errorf("emitting the source map of %s: %w", id, err)
	}

	bc.mu.Lock()
	bc.maps[id] = moduleMap{handle: h, lines: m.GeneratedLines}
	bc.stats.ModuleMaps++
	if synthesized {
		bc.stats.IdentityMaps++
	}
	bc.mu.Unlock()

	logger.WithFields(logrus.Fields{"identity": synthesized, "lines": m.GeneratedLines}).Debug("Registered module source map")
	return &pipeline.TransformResult{Code: code, Map: b}, nil
}

func (bc *buildContext) moduleMap(logger logrus.FieldLogger, raw []byte, code, id string) (*sourcemap.Map, bool) {
	if sourcemap.IsEmptyRaw(raw) {
		return sourcemap.Identity(code, id), true
	}
	m, err := sourcemap.Parse(raw)
	if err != nil {
		logger.WithError(err).Warnf("Couldn't parse the source map of %s, mapping it to itself", id)
		return sourcemap.Identity(code, id), true
	}
	if m.IsEmpty() {
		return sourcemap.Identity(code, id), true
	}
	return m, false
}

// moduleMapName is "<module name>.map", without a ".module" infix.
func moduleMapName(id string) string {
	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}
	return strings.Replace(pipeline.Stem(id), ".module", "", 1) + ".map"
}
