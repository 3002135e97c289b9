package cssmap

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/liuxd6825/stylemap/pipeline"
)

// ErrBuildDone is returned for hooks called after the bundle was generated.
var ErrBuildDone = errors.New("build is already done")

// ErrBuildNotStarted is returned for hooks called before the build started.
var ErrBuildNotStarted = errors.New("build hasn't started")

type phase uint8

const (
	phaseInit phase = iota
	phaseInterceptorInstalled
	phaseHashModeDecided
	phaseCollectingMaps
	phaseAssociatingAssets
	phaseMerging
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseInit:
		return "init"
	case phaseInterceptorInstalled:
		return "interceptor installed"
	case phaseHashModeDecided:
		return "hash mode decided"
	case phaseCollectingMaps:
		return "collecting maps"
	case phaseAssociatingAssets:
		return "associating assets"
	case phaseMerging:
		return "merging"
	case phaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// assetModules records which modules end up in which asset. Keys keep the
// order they were first seen in and ids the order they were added in.
type assetModules struct {
	keys    []string
	modules map[string][]string
}

func newAssetModules() *assetModules {
	return &assetModules{modules: make(map[string][]string)}
}

func (a *assetModules) add(key string, ids ...string) {
	if len(ids) == 0 {
		return
	}
	if _, ok := a.modules[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.modules[key] = append(a.modules[key], ids...)
}

func (a *assetModules) get(key string) []string {
	return a.modules[key]
}

// hashKeyIn returns the first recorded key that is part of the base name of fileName.
func (a *assetModules) hashKeyIn(fileName string) (string, bool) {
	base := path.Base(fileName)
	for _, key := range a.keys {
		if key != "" && strings.Contains(base, key) {
			return key, true
		}
	}
	return "", false
}

type moduleMap struct {
	handle pipeline.Handle
	lines  int
}

// Stats summarizes what the plugin did during a build.
type Stats struct {
	ModuleMaps    int
	IdentityMaps  int
	MappedAssets  []string
	SkippedAssets []string
}

// buildContext is everything the plugin knows about a single build. A new
// one is created on every build start.
type buildContext struct {
	logger     logrus.FieldLogger
	extensions []string
	folder     string
	getURL     func(string) string

	mu           sync.Mutex
	phase        phase
	templateName string
	entries      int
	output       pipeline.OutputOptions
	modeDecided  bool
	hashed       bool
	assetDir     string

	assets *assetModules
	// chunkHashes is the captured hash of each chunk with style modules.
	chunkHashes map[string]string
	maps        map[string]moduleMap
	stats       Stats
}

func newBuildContext(logger logrus.FieldLogger, cfg Config, getURL func(string) string) *buildContext {
	return &buildContext{
		logger:      logger,
		extensions:  cfg.Extensions,
		folder:      cfg.Folder.String,
		getURL:      getURL,
		assets:      newAssetModules(),
		chunkHashes: make(map[string]string),
		maps:        make(map[string]moduleMap),
	}
}

// enter moves the build to p, unless it is already further along.
func (bc *buildContext) enter(p phase) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.enterLocked(p)
}

func (bc *buildContext) enterLocked(p phase) error {
	if bc.phase == phaseDone {
		return fmt.Errorf("%w: hook for %s", ErrBuildDone, p)
	}
	if p > bc.phase {
		bc.logger.Debugf("Build is now %s", p)
		bc.phase = p
	}
	return nil
}

func (bc *buildContext) styleModules(ids []string) []string {
	var styles []string
	for _, id := range ids {
		if pipeline.HasExtension(id, bc.extensions) {
			styles = append(styles, id)
		}
	}
	return styles
}
