package pipeline

// InputEntry is a single declared entry point of a build.
type InputEntry struct {
	// Alias overrides the name derived from Path.
	Alias string
	// Path is the module id of the entry module.
	Path string
	// Imports are the ids of the modules the entry imports, in import order.
	Imports []string
}

// Name returns the name of the chunk the entry produces.
func (e InputEntry) Name() string {
	if e.Alias != "" {
		return Stem(e.Alias)
	}
	return Stem(e.Path)
}

// Input is the ordered list of entries of a build.
type Input []InputEntry

// TemplateName is the name of the first declared entry.
func (in Input) TemplateName() string {
	if len(in) == 0 {
		return ""
	}
	return in[0].Name()
}

// RenderedChunk is a chunk of the output with its final content.
type RenderedChunk struct {
	Name    string
	IsEntry bool
	// FileName is the name of the chunk. While rendering it still contains
	// the placeholders that depend on the final content.
	FileName  string
	ModuleIDs []string
	Code      string
}
