package cssmap

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/liuxd6825/stylemap/pipeline"
	"github.com/liuxd6825/stylemap/sourcemap"
)

// styleAssetSuffix is the suffix of the style assets in the output set,
// whatever their sources were written in.
const styleAssetSuffix = ".css"

// mergeAssets folds the module maps of every style asset into one map,
// emits it next to the asset and points the asset to it. The module maps
// are removed from the output set.
func (bc *buildContext) mergeAssets(ctx context.Context, pc pipeline.PluginContext, bundle *pipeline.Bundle) error {
	if err := bc.ensureHashMode(); err != nil {
		return err
	}
	if err := bc.enter(phaseMerging); err != nil {
		return err
	}

	for _, asset := range bundle.Assets(styleAssetSuffix) {
		if err := bc.mergeAsset(ctx, pc, bundle, asset); err != nil {
			return err
		}
	}

	// maps of modules that didn't end up in any style asset aren't shipped either
	bc.mu.Lock()
	defer bc.mu.Unlock()
	for id, ref := range bc.maps {
		fileName, err := pc.FileName(ref.handle)
		if err != nil {
			return fmt.Errorf("resolving the source map of %s: %w", id, err)
		}
		if bundle.Has(fileName) {
			bc.logger.WithField("module", id).Debug("Dropping the source map of a module without a style asset")
			bundle.Delete(fileName)
		}
	}
	return bc.enterLocked(phaseDone)
}

// assetModules returns the modules of an asset, looking first under the
// key of builds without hashes, then under the hash captured for the chunk
// the asset was emitted for and last under a hash in its file name. Asset
// names don't need to carry the hash of their chunk.
func (bc *buildContext) assetModules(asset *pipeline.OutputFile) []string {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if ids := bc.assets.get(bc.preHashKey()); len(ids) > 0 {
		return ids
	}
	if chunk, ok := strings.CutSuffix(asset.Name, styleAssetSuffix); ok {
		if key, ok := bc.chunkHashes[chunk]; ok {
			return bc.assets.get(key)
		}
	}
	if key, ok := bc.assets.hashKeyIn(asset.FileName); ok {
		return bc.assets.get(key)
	}
	return nil
}

func (bc *buildContext) mergeAsset(
	ctx context.Context, pc pipeline.PluginContext, bundle *pipeline.Bundle, asset *pipeline.OutputFile,
) error {
	logger := bc.logger.WithField("asset", asset.FileName)
	ids := bc.assetModules(asset)

	var merged *sourcemap.Map
	for _, id := range ids {
		m, err := bc.takeModuleMap(pc, bundle, id)
		if err != nil {
			return err
		}
		if m == nil {
			continue
		}
		if merged, err = sourcemap.Merge(merged, m); err != nil {
			return fmt.Errorf("merging the source map of %s into %s: %w", id, asset.FileName, err)
		}
	}

	if merged == nil {
		logger.Warnf("No source map found for %s", asset.FileName)
		bc.mu.Lock()
		bc.stats.SkippedAssets = append(bc.stats.SkippedAssets, asset.FileName)
		bc.mu.Unlock()
		return nil
	}

	mapName := path.Base(asset.FileName) + ".map"
	ref := path.Join(bc.folder, mapName)
	merged.File = path.Base(asset.FileName)
	b, err := merged.Bytes()
	if err != nil {
		return fmt.Errorf("encoding the source map of %s: %w", asset.FileName, err)
	}
	if _, err = pc.EmitAsset(ctx, pipeline.EmittedAsset{
		Name:     mapName,
		FileName: path.Join(path.Dir(asset.FileName), ref),
		Source:   b,
	}); err != nil {
		return fmt.Errorf("emitting the source map of %s: %w", asset.FileName, err)
	}

	trailer := "\n/*# sourceMappingURL=" + bc.getURL(ref) + " */"
	source := make([]byte, 0, len(asset.Source)+len(trailer))
	source = append(source, asset.Source...)
	asset.Source = append(source, trailer...)

	bc.mu.Lock()
	bc.stats.MappedAssets = append(bc.stats.MappedAssets, asset.FileName)
	bc.mu.Unlock()
	logger.WithFields(logrus.Fields{"modules": len(merged.Sources), "map": ref}).Debug("Merged style source maps")
	return nil
}

// takeModuleMap reads the map of a module back from the output set and
// removes it from there. It returns nil if the module has no map or it was
// already taken by another asset.
func (bc *buildContext) takeModuleMap(pc pipeline.PluginContext, bundle *pipeline.Bundle, id string) (*sourcemap.Map, error) {
	bc.mu.Lock()
	ref, ok := bc.maps[id]
	bc.mu.Unlock()
	if !ok {
		bc.logger.WithField("module", id).Debug("No source map was registered for module")
		return nil, nil
	}

	fileName, err := pc.FileName(ref.handle)
	if err != nil {
		return nil, fmt.Errorf("resolving the source map of %s: %w", id, err)
	}
	f, ok := bundle.Get(fileName)
	if !ok {
		bc.logger.WithFields(logrus.Fields{"module": id, "map": fileName}).Debug("Source map of module was already merged")
		return nil, nil
	}
	bundle.Delete(fileName)

	m, err := sourcemap.Parse(f.Source)
	if err != nil {
		return nil, fmt.Errorf("reading the source map of %s: %w", id, err)
	}
	m.GeneratedLines = ref.lines
	return m, nil
}
