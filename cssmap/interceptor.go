package cssmap

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/liuxd6825/stylemap/errext"
	"github.com/liuxd6825/stylemap/errext/exitcodes"
	"github.com/liuxd6825/stylemap/pipeline"
)

// installInterceptor decorates the chunk hash hook of the style post
// processing plugin, so that we learn under which hash the style modules of
// each chunk end up.
func (bc *buildContext) installInterceptor(hooks *pipeline.ChunkHashHooks) error {
	if hooks == nil {
		return bc.missingCollaborator(fmt.Errorf("the host doesn't expose chunk hash hooks"))
	}
	if err := hooks.Wrap(pipeline.StylePostPlugin, bc.captureChunkHash); err != nil {
		return bc.missingCollaborator(err)
	}
	return bc.enter(phaseInterceptorInstalled)
}

func (bc *buildContext) missingCollaborator(err error) error {
	err = fmt.Errorf("%s plugin not found: %w", pipeline.StylePostPlugin, err)
	err = errext.WithHintf(err, "style source maps can't be associated with hashed assets without it, "+
		"make sure it is installed before %s", PluginName)
	return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
}

// captureChunkHash returns original unchanged in behavior: it is called
// with the same chunk and its result is returned as is.
func (bc *buildContext) captureChunkHash(original pipeline.ChunkHashFunc) pipeline.ChunkHashFunc {
	return func(chunk *pipeline.RenderedChunk) string {
		hash := original(chunk)
		if hash == "" {
			return hash
		}

		bc.mu.Lock()
		defer bc.mu.Unlock()
		if !bc.hashed || bc.phase == phaseDone {
			return hash
		}
		if styles := bc.styleModules(chunk.ModuleIDs); len(styles) > 0 {
			bc.assets.add(hash, styles...)
			bc.chunkHashes[chunk.Name] = hash
			bc.logger.WithFields(logrus.Fields{
				"chunk": chunk.Name, "hash": hash, "modules": len(styles),
			}).Debug("Captured style modules of hashed chunk")
		}
		return hash
	}
}
