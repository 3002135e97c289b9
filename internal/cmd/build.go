package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"

	"github.com/liuxd6825/stylemap/cmd/state"
	"github.com/liuxd6825/stylemap/cssmap"
	"github.com/liuxd6825/stylemap/errext"
	"github.com/liuxd6825/stylemap/errext/exitcodes"
	"github.com/liuxd6825/stylemap/internal/manifest"
	"github.com/liuxd6825/stylemap/internal/precompress"
	"github.com/liuxd6825/stylemap/lib/fsext"
	"github.com/liuxd6825/stylemap/pipeline"
	"github.com/liuxd6825/stylemap/pipeline/stylepost"
)

// cmdBuild handles the `stylemap build` sub-command
type cmdBuild struct {
	gs *state.GlobalState

	outDir      string
	urlPrefix   string
	concurrency int
	dryRun      bool
	compress    []string
	compressMin int
}

func (c *cmdBuild) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringVarP(&c.outDir, "out", "o", "", "output directory, overrides the one of the manifest")
	flags.String("folder", "", "directory of the merged source maps, relative to their style asset")
	flags.StringSlice("extensions", nil, "extensions of the style modules, like .css,.scss")
	flags.Bool("disable", false, "don't generate style source maps")
	flags.String("entry-file-names", "", "naming template of the entries")
	flags.String("asset-file-names", "", "naming template of the assets")
	flags.StringVar(&c.urlPrefix, "url-prefix", "", "prefix of the sourceMappingURL written to the style assets")
	flags.IntVar(&c.concurrency, "concurrency", 0, "maximum number of modules transformed at the same time, 0 is unlimited")
	flags.StringSliceVar(&c.compress, "compress", nil, "also write compressed copies of the text files: gzip, zstd or br")
	flags.IntVar(&c.compressMin, "compress-min-size", 1024, "size in bytes below which files aren't compressed")
	flags.BoolVar(&c.dryRun, "dry-run", false, "build without writing the output")
	return flags
}

// getConfig returns the part of the source map configuration set by flags.
func getConfig(flags *pflag.FlagSet) (cssmap.Config, error) {
	conf := cssmap.Config{
		Folder: getNullString(flags, "folder"),
	}
	if disable := getNullBool(flags, "disable"); disable.Valid {
		conf.Enabled = null.NewBool(!disable.Bool, true)
	}
	exts, err := flags.GetStringSlice("extensions")
	if err != nil {
		return conf, err
	}
	conf.Extensions = exts
	return conf, nil
}

func (c *cmdBuild) run(cmd *cobra.Command, args []string) error {
	m, err := c.loadManifest(args)
	if err != nil {
		return err
	}

	env, err := c.buildEnv(m.Dir)
	if err != nil {
		return err
	}
	conf, err := c.consolidatedConfig(cmd.Flags(), m, env)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	output := applyNamingFlags(cmd.Flags(), m.OutputOptions())
	compressions, err := precompress.ParseTypes(c.compress)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	logger := c.gs.Logger
	modules, err := m.LoadModules(fsext.NewReadOnlyFs(c.gs.FS), logger)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	ctx, cancel := context.WithCancel(c.gs.Ctx)
	defer cancel()
	stopSignalHandling := handleAbortSignals(c.gs, func(sig os.Signal) {
		logger.WithField("sig", sig).Warn("Stopping the build in response to signal...")
		cancel()
	})
	defer stopSignalHandling()

	maps := cssmap.New(cssmap.Params{
		Logger: logger,
		Config: conf,
		GetURL: func(mapPath string) string { return c.urlPrefix + mapPath },
	})
	bundle, err := pipeline.Build(ctx, pipeline.BuildOptions{
		Input:       m.Input(),
		Modules:     modules,
		Output:      output,
		Plugins:     []pipeline.Plugin{stylepost.New(logger, conf.Extensions...), maps},
		Logger:      logger,
		Concurrency: c.concurrency,
	})
	if err != nil {
		if ctx.Err() != nil && c.gs.Ctx.Err() == nil {
			return &errext.AbortError{Reason: "build was aborted"}
		}
		return errext.WithExitCodeIfNone(err, exitcodes.BuildFailed)
	}

	outDir := m.OutDir()
	if c.outDir != "" {
		outDir = c.outDir
		if !filepath.IsAbs(outDir) {
			cwd, err := c.gs.Getwd()
			if err != nil {
				return err
			}
			outDir = filepath.Join(cwd, outDir)
		}
	}
	if !c.dryRun {
		if err := bundle.Write(c.gs.FS, outDir); err != nil {
			return errext.WithExitCodeIfNone(err, exitcodes.BuildFailed)
		}
		n, err := precompress.Write(c.gs.FS, outDir, bundle, precompress.Options{
			Types: compressions, MinSize: c.compressMin,
		}, logger)
		if err != nil {
			return errext.WithExitCodeIfNone(err, exitcodes.BuildFailed)
		}
		if n > 0 {
			logger.Debugf("Wrote %d compressed copies", n)
		}
	}

	if !c.gs.Flags.Quiet {
		var stats cssmap.Stats
		if p, ok := maps.(*cssmap.Plugin); ok {
			stats = p.Stats()
		}
		printToStdout(c.gs, c.summary(bundle, stats, outDir))
	}
	return nil
}

// loadManifest loads the manifest given as an argument, with --config, or
// the first default one found in the working directory.
func (c *cmdBuild) loadManifest(args []string) (*manifest.Manifest, error) {
	fileName := c.gs.Flags.ConfigFilePath
	if len(args) > 0 {
		fileName = args[0]
	}
	cwd, err := c.gs.Getwd()
	if err != nil {
		return nil, err
	}
	switch {
	case fileName == "":
		if fileName, err = manifest.Find(c.gs.FS, cwd); err != nil {
			return nil, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
		}
	case !filepath.IsAbs(fileName):
		fileName = filepath.Join(cwd, fileName)
	}

	m, err := manifest.Load(c.gs.FS, fileName)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	c.gs.Logger.WithField("manifest", fileName).Debug("Loaded the manifest")
	return m, nil
}

// buildEnv returns the process environment on top of the variables of the
// env file. A relative env file is relative to the manifest.
func (c *cmdBuild) buildEnv(manifestDir string) (map[string]string, error) {
	env := make(map[string]string, len(c.gs.Env))
	if envFile := c.gs.Flags.EnvFile; envFile != "" {
		if !filepath.IsAbs(envFile) {
			envFile = filepath.Join(manifestDir, envFile)
		}
		data, err := fsext.ReadFileIfExists(c.gs.FS, envFile)
		if err != nil {
			return nil, err
		}
		if data != nil {
			fileEnv, err := godotenv.Unmarshal(string(data))
			if err != nil {
				return nil, errext.WithExitCodeIfNone(
					fmt.Errorf("parsing the env file %s: %w", envFile, err), exitcodes.InvalidConfig)
			}
			for k, v := range fileEnv {
				env[k] = v
			}
			c.gs.Logger.WithField("file", envFile).Debugf("Loaded %d environment variables", len(fileEnv))
		}
	}
	for k, v := range c.gs.Env {
		env[k] = v
	}
	return env, nil
}

func (c *cmdBuild) consolidatedConfig(
	flags *pflag.FlagSet, m *manifest.Manifest, env map[string]string,
) (cssmap.Config, error) {
	conf, err := cssmap.GetConsolidatedConfig(m.Sourcemaps, env)
	if err != nil {
		return conf, err
	}
	cliConf, err := getConfig(flags)
	if err != nil {
		return conf, err
	}
	conf = conf.Apply(cliConf)
	if err := conf.Validate(); err != nil {
		return conf, err
	}
	c.gs.Logger.WithFields(logrus.Fields{
		"enabled": conf.Enabled.Bool, "folder": conf.Folder.String, "extensions": conf.Extensions,
	}).Debug("Source map configuration")
	return conf, nil
}

func applyNamingFlags(flags *pflag.FlagSet, opts pipeline.OutputOptions) pipeline.OutputOptions {
	if v := getNullString(flags, "entry-file-names"); v.Valid {
		opts.EntryFileNames = pipeline.Static(v.String)
	}
	if v := getNullString(flags, "asset-file-names"); v.Valid {
		opts.AssetFileNames = pipeline.Static(v.String)
	}
	return opts
}

func (c *cmdBuild) summary(bundle *pipeline.Bundle, stats cssmap.Stats, outDir string) string {
	noColor := c.gs.Flags.NoColor || !c.gs.Stdout.IsTTY
	valueColor := getColor(noColor, color.FgCyan)
	warnColor := getColor(noColor, color.FgYellow)

	var b strings.Builder
	target := outDir
	if c.dryRun {
		target += " (dry run)"
	}
	fmt.Fprintf(&b, "\n  output: %s\n", valueColor.Sprint(target))
	for _, f := range bundle.Files() {
		fmt.Fprintf(&b, "    %s %s\n", valueColor.Sprint(f.FileName), formatSize(len(f.Source)))
	}
	fmt.Fprintf(&b, "\n  style source maps: %s merged from %s modules (%s identity)\n",
		valueColor.Sprint(len(stats.MappedAssets)), valueColor.Sprint(stats.ModuleMaps),
		valueColor.Sprint(stats.IdentityMaps))
	for _, asset := range stats.SkippedAssets {
		fmt.Fprintf(&b, "    %s\n", warnColor.Sprintf("no source map for %s", asset))
	}
	b.WriteString("\n")
	return b.String()
}

func getColor(noColor bool, attributes ...color.Attribute) *color.Color {
	if noColor {
		c := color.New()
		c.DisableColor()
		return c
	}

	c := color.New(attributes...)
	c.EnableColor()
	return c
}

func formatSize(n int) string {
	const kb = 1024
	if n < kb {
		return fmt.Sprintf("%dB", n)
	}
	return fmt.Sprintf("%.1fkB", float64(n)/kb)
}

func getCmdBuild(gs *state.GlobalState) *cobra.Command {
	c := &cmdBuild{gs: gs}

	exampleText := getExampleText(gs, `
  # Build with the stylemap manifest of the working directory
  $ {{.}} build

  # Build a manifest into another directory
  $ {{.}} build web/stylemap.toml --out public

  # Put the merged maps into a "maps" directory next to the style assets
  $ {{.}} build --folder maps --url-prefix /static/`[1:])

	buildCmd := &cobra.Command{
		Use:   "build [manifest]",
		Short: "Build the entries of a manifest",
		Long: `Build the entries of a manifest.

Every style asset of the output gets a single source map, merged from the
source maps of the style modules it was made of.`,
		Example: exampleText,
		Args:    maxArgsWithMsg(1, "only the manifest can be given"),
		RunE:    c.run,
	}
	buildCmd.Flags().SortFlags = false
	buildCmd.Flags().AddFlagSet(c.flagSet())
	return buildCmd
}
