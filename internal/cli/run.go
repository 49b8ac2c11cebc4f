package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/forPelevin/lecturecut/internal/config"
	"github.com/forPelevin/lecturecut/internal/domain/arguments"
	"github.com/forPelevin/lecturecut/internal/pipeline"
	"github.com/forPelevin/lecturecut/internal/ports"
	"github.com/forPelevin/lecturecut/internal/ports/adapters/native"
	"github.com/forPelevin/lecturecut/internal/progress"
	"github.com/forPelevin/lecturecut/internal/report"
	"github.com/forPelevin/lecturecut/internal/types"
	"github.com/forPelevin/lecturecut/internal/usecase"
)

const reencodeArg = "reencode"

var hostArgs = []types.Argument{
	{Short: 'i', Long: "input", Description: "Input file or directory", Required: true},
	{Short: 'o', Long: "output", Description: "Output file or directory"},
	{Long: "tsonly", Description: "Only write the cut timestamps, do not render", IsFlag: true},
	{Short: 'h', Long: "help", Description: "Print help", IsFlag: true},
}

type App struct {
	Env    config.Env
	Log    *logrus.Logger
	Report *report.Reporter
	// Display draws progress. Nil keeps progress off screen.
	Display progress.Display

	LoadGenerator func(native.Options) (ports.Generator, error)
	LoadRenderer  func(native.Options) (ports.Renderer, error)
}

// Run validates the paths in args, loads both modules, builds the command
// line from their schemas and processes the input.
func (a *App) Run(ctx context.Context, args []string) error {
	if a.Log == nil {
		a.Log = logrus.New()
	}
	if a.Report == nil {
		a.Report = report.New()
	}

	// Paths are checked before any module is loaded.
	cfg, validated, err := a.prevalidate(args)
	if err != nil {
		return err
	}

	opts := native.Options{Dir: a.Env.ModulesDir, OnError: a.Report.Fatal, Log: a.Log}
	render, err := a.LoadRenderer(opts)
	if err != nil {
		return err
	}
	defer closeModule(a.Log, "render", render)
	generator, err := a.LoadGenerator(opts)
	if err != nil {
		return err
	}
	defer closeModule(a.Log, "generator", generator)

	genVersion, err := generator.Version()
	if err != nil {
		return err
	}
	renderVersion, err := render.Version()
	if err != nil {
		return err
	}
	a.Log.Debugf("generator %s, render %s", genVersion, renderVersion)
	a.Report.Modules(genVersion, renderVersion)

	genArgs, err := generator.Arguments()
	if err != nil {
		return err
	}
	renderArgs, err := render.Arguments()
	if err != nil {
		return err
	}
	if err := arguments.Validate(
		arguments.Set{Owner: "the host", Args: hostArgs},
		arguments.Set{Owner: "the generator module", Args: genArgs},
		arguments.Set{Owner: "the render module", Args: renderArgs},
	); err != nil {
		return err
	}

	hostFS := flagSet("host", hostArgs)
	genFS := flagSet("generator", genArgs)
	renderFS := flagSet("render", renderArgs)

	root := &cobra.Command{
		Use:           "lecturecut --input <path>",
		Short:         "Cut the silent parts out of lecture recordings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !validated {
				var err error
				if cfg, err = a.validate(hostConfig(hostFS)); err != nil {
					return err
				}
			}
			return a.process(cmd.Context(), cfg, generator, render, genFS, genArgs, renderFS, renderArgs)
		},
	}
	root.SetOut(a.Report.Out)
	root.SetErr(a.Report.Err)
	root.Flags().AddFlagSet(hostFS)
	root.Flags().AddFlagSet(genFS)
	root.Flags().AddFlagSet(renderFS)
	root.SetUsageFunc(func(c *cobra.Command) error {
		w := c.OutOrStderr()
		fmt.Fprintf(w, "Usage:\n  %s\n", c.UseLine())
		section(w, "Options", hostFS)
		section(w, "Generator Arguments", genFS)
		section(w, "Render Arguments", renderFS)
		return nil
	})
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root.SetArgs(args)

	return root.ExecuteContext(ctx)
}

func (a *App) process(ctx context.Context, cfg pipeline.Config, generator ports.Generator, render ports.Renderer,
	genFS *pflag.FlagSet, genArgs []types.Argument, renderFS *pflag.FlagSet, renderArgs []types.Argument,
) error {
	var err error
	if cfg.GeneratorArgs, err = arguments.Resolve(genFS, genArgs); err != nil {
		return err
	}
	if cfg.RenderArgs, err = arguments.Resolve(renderFS, renderArgs); err != nil {
		return err
	}
	a.Log.Debugf("%d generator and %d render arguments supplied", len(cfg.GeneratorArgs), len(cfg.RenderArgs))

	if !cfg.TSOnly && arguments.Has(renderArgs, reencodeArg) && !arguments.Supplied(cfg.RenderArgs, reencodeArg) {
		a.Report.ReencodeMissing()
	}

	mux := progress.New(a.Display)
	defer mux.Close()

	// While bars are drawn, every line goes above them.
	unitReport := a.Report
	if a.Display != nil {
		r := *a.Report
		r.Out, r.Err = a.Display, a.Display
		unitReport = &r
	}

	start := time.Now()
	rows, err := pipeline.Run(ctx, cfg, usecase.Deps{
		Generator: generator,
		Renderer:  render,
		Progress:  mux,
		Report:    unitReport,
		Log:       a.Log,
	})
	mux.Close()
	if len(rows) > 0 || err == nil {
		a.Report.Summary(rows, time.Since(start))
	}
	return err
}

// prevalidate reads the host flags out of args, ignoring module flags, and
// validates the paths. It reports validated=false when args cannot be
// checked yet; the full parse then reports what is wrong.
func (a *App) prevalidate(args []string) (cfg pipeline.Config, validated bool, err error) {
	fs := flagSet("host", hostArgs)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return cfg, false, nil
	}
	if help, _ := fs.GetBool("help"); help {
		return cfg, false, nil
	}
	if !fs.Changed("input") {
		return cfg, false, nil
	}
	cfg, err = a.validate(hostConfig(fs))
	return cfg, err == nil, err
}

func (a *App) validate(cfg pipeline.Config) (pipeline.Config, error) {
	cfg.Log = a.Log
	cfg, err := cfg.Validate()
	if err != nil {
		return cfg, err
	}
	for _, w := range cfg.Warnings {
		switch w {
		case pipeline.WarnNotVideo:
			a.Report.NotVideo()
		case pipeline.WarnDirNotEmpty:
			a.Report.DirNotEmpty()
		}
	}
	return cfg, nil
}

func hostConfig(fs *pflag.FlagSet) pipeline.Config {
	input, _ := fs.GetString("input")
	output, _ := fs.GetString("output")
	tsonly, _ := fs.GetBool("tsonly")
	return pipeline.Config{Input: input, Output: output, TSOnly: tsonly}
}

func flagSet(name string, args []types.Argument) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	arguments.Register(fs, args)
	return fs
}

func section(w io.Writer, heading string, fs *pflag.FlagSet) {
	if !fs.HasFlags() {
		return
	}
	fmt.Fprintf(w, "\n%s:\n%s", heading, fs.FlagUsages())
}

func closeModule(log *logrus.Logger, name string, m ports.Module) {
	if err := m.Close(); err != nil {
		log.WithError(err).Warnf("close %s module", name)
	}
}
