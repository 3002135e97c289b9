package cssmap

import (
	"fmt"
	"path"

	"github.com/sirupsen/logrus"

	"github.com/liuxd6825/stylemap/errext"
	"github.com/liuxd6825/stylemap/errext/exitcodes"
	"github.com/liuxd6825/stylemap/pipeline"
)

// decideHashMode works out whether entries are named with a hash and in
// which directory assets are placed. Dynamic patterns are evaluated for the
// first entry and its style asset.
func (bc *buildContext) decideHashMode(opts pipeline.OutputOptions) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if err := bc.enterLocked(phaseHashModeDecided); err != nil {
		return err
	}
	opts = opts.WithDefaults()

	entry, err := opts.EntryFileNames.Resolve(pipeline.PreRendered{
		Name: bc.templateName, Type: pipeline.ChunkFile, IsEntry: true,
	})
	if err != nil {
		return invalidPattern("entryFileNames", err)
	}
	asset, err := opts.AssetFileNames.Resolve(pipeline.PreRendered{
		Name: bc.templateName + ".css", Type: pipeline.AssetFile,
	})
	if err != nil {
		return invalidPattern("assetFileNames", err)
	}

	bc.output = opts
	bc.modeDecided = true
	bc.hashed = pipeline.HasHash(entry)
	bc.assetDir = path.Dir(asset)
	if bc.assetDir == "." {
		bc.assetDir = ""
	}
	bc.logger.WithFields(logrus.Fields{
		"hashed": bc.hashed, "assetDir": bc.assetDir, "template": bc.templateName,
	}).Debug("Decided on the hash mode")
	if !bc.hashed && bc.entries > 1 {
		bc.logger.WithFields(logrus.Fields{"entries": bc.entries, "key": bc.preHashKey()}).Warnf(
			"Entry file names have no hash, the styles of all %d entries are mapped under %s; "+
				"add [hash] to entryFileNames to get a source map per entry", bc.entries, bc.templateName)
	}
	return nil
}

func invalidPattern(option string, err error) error {
	return errext.WithExitCodeIfNone(fmt.Errorf("%s: %w", option, err), exitcodes.InvalidConfig)
}

func (bc *buildContext) ensureHashMode() error {
	bc.mu.Lock()
	decided := bc.modeDecided
	bc.mu.Unlock()
	if decided {
		return nil
	}
	// the host never told us about the output options, so they are the defaults
	return bc.decideHashMode(pipeline.OutputOptions{})
}

// preHashKey is where the modules of a build without hashes are recorded:
// the asset directory joined with the name of the first entry.
func (bc *buildContext) preHashKey() string {
	return path.Join(bc.assetDir, bc.templateName)
}

// associateChunk records the style modules of a finished chunk when the
// output isn't hashed. Hashed builds learn the same through the interceptor.
func (bc *buildContext) associateChunk(chunk *pipeline.RenderedChunk) error {
	if err := bc.ensureHashMode(); err != nil {
		return err
	}
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if err := bc.enterLocked(phaseAssociatingAssets); err != nil {
		return err
	}
	if bc.hashed {
		return nil
	}
	styles := bc.styleModules(chunk.ModuleIDs)
	if len(styles) == 0 {
		return nil
	}
	key := bc.preHashKey()
	bc.assets.add(key, styles...)
	bc.logger.WithFields(logrus.Fields{
		"chunk": chunk.Name, "key": key, "modules": len(styles),
	}).Debug("Associated style modules of chunk")
	return nil
}
