package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/liuxd6825/stylemap/cmd/state"
	"github.com/liuxd6825/stylemap/errext"
	"github.com/liuxd6825/stylemap/errext/exitcodes"
	"github.com/liuxd6825/stylemap/lib/fsext"
	"github.com/liuxd6825/stylemap/sourcemap"
)

// cmdMerge handles the `stylemap merge` sub-command
type cmdMerge struct {
	gs *state.GlobalState

	out  string
	file string
}

func (c *cmdMerge) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringVarP(&c.out, "out", "o", "", "write the merged map to this file instead of stdout")
	flags.StringVar(&c.file, "file", "", "the file property of the merged map")
	return flags
}

func (c *cmdMerge) run(_ *cobra.Command, args []string) error {
	maps := make([]*sourcemap.Map, 0, len(args))
	for _, fileName := range args {
		m, err := c.readMap(fileName)
		if err != nil {
			return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
		}
		maps = append(maps, m)
	}

	merged, err := sourcemap.Concat(maps...)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.BuildFailed)
	}
	if c.file != "" {
		merged.File = c.file
	}
	b, err := merged.Bytes()
	if err != nil {
		return err
	}

	if c.out == "" {
		printToStdout(c.gs, string(b)+"\n")
		return nil
	}
	if err := c.gs.FS.MkdirAll(filepath.Dir(c.out), 0o755); err != nil {
		return err
	}
	if err := fsext.WriteFile(c.gs.FS, c.out, b, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", c.out, err)
	}
	c.gs.Logger.WithField("maps", len(maps)).Infof("Merged source map written to %s", c.out)
	return nil
}

// readMap reads a map and, when the file it was generated for sits next to
// it, takes the number of lines it covers from that file.
func (c *cmdMerge) readMap(fileName string) (*sourcemap.Map, error) {
	b, err := fsext.ReadFile(c.gs.FS, fileName)
	if err != nil {
		return nil, err
	}
	m, err := sourcemap.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fileName, err)
	}

	if !strings.HasSuffix(fileName, ".map") {
		return m, nil
	}
	generated, err := fsext.ReadFileIfExists(c.gs.FS, strings.TrimSuffix(fileName, ".map"))
	if err != nil {
		return nil, err
	}
	if generated != nil {
		m.GeneratedLines = strings.Count(string(generated), "\n") + 1
	}
	return m, nil
}

func getCmdMerge(gs *state.GlobalState) *cobra.Command {
	c := &cmdMerge{gs: gs}

	mergeCmd := &cobra.Command{
		Use:   "merge map...",
		Short: "Concatenate source maps",
		Long: `Concatenate source maps into the map of the concatenation of their files.

The lines covered by a map are taken from the file it was generated for when
it sits next to the map, for example a.css for a.css.map.`,
		Example: getExampleText(gs, `
  $ {{.}} merge a.css.map b.css.map --file bundle.css -o bundle.css.map`[1:]),
		Args: cobra.MinimumNArgs(1),
		RunE: c.run,
	}
	mergeCmd.Flags().AddFlagSet(c.flagSet())
	return mergeCmd
}
