package pipeline

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/liuxd6825/stylemap/lib/fsext"
)

// OutputFile is a single file of the output set.
type OutputFile struct {
	FileName string
	Name     string
	Type     FileType
	Source   []byte
}

// Bundle is the output set of a build, keyed by file name.
type Bundle struct {
	mu    sync.RWMutex
	files map[string]*OutputFile
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{files: make(map[string]*OutputFile)}
}

// Add adds f to the bundle, replacing any file with the same name.
func (b *Bundle) Add(f *OutputFile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[f.FileName] = f
}

// Get returns the file called fileName.
func (b *Bundle) Get(fileName string) (*OutputFile, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	f, ok := b.files[fileName]
	return f, ok
}

// Delete removes the file called fileName. It is a no-op if there is none.
func (b *Bundle) Delete(fileName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.files, fileName)
}

// Len returns the number of files in the bundle.
func (b *Bundle) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.files)
}

// Files returns all files sorted by name.
func (b *Bundle) Files() []*OutputFile {
	b.mu.RLock()
	defer b.mu.RUnlock()
	files := make([]*OutputFile, 0, len(b.files))
	for _, f := range b.files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].FileName < files[j].FileName })
	return files
}

// Assets returns the assets whose file name ends with suffix, sorted by name.
func (b *Bundle) Assets(suffix string) []*OutputFile {
	var assets []*OutputFile
	for _, f := range b.Files() {
		if f.Type == AssetFile && strings.HasSuffix(f.FileName, suffix) {
			assets = append(assets, f)
		}
	}
	return assets
}

// Has reports whether there is a file called fileName.
func (b *Bundle) Has(fileName string) bool {
	_, ok := b.Get(fileName)
	return ok
}

// addUnique adds f under its name or, if that is taken, under its name with
// a counter added before the extension. It returns the name used.
func (b *Bundle) addUnique(f *OutputFile) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	f.FileName = b.uniqueName(f.FileName)
	b.files[f.FileName] = f
	return f.FileName
}

func (b *Bundle) uniqueName(fileName string) string {
	if _, ok := b.files[fileName]; !ok {
		return fileName
	}
	ext := path.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%d%s", base, i, ext)
		if _, ok := b.files[candidate]; !ok {
			return candidate
		}
	}
}

// Write writes every file of the bundle under dir.
func (b *Bundle) Write(fs fsext.Fs, dir string) error {
	for _, f := range b.Files() {
		target := filepath.Join(dir, filepath.FromSlash(f.FileName))
		if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.FileName, err)
		}
		if err := fsext.WriteFile(fs, target, f.Source, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.FileName, err)
		}
	}
	return nil
}
