package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/lecturecut/internal/domain/media"
	"github.com/forPelevin/lecturecut/internal/types"
	"github.com/forPelevin/lecturecut/internal/usecase"
)

var (
	ErrInputMissing = errors.New("input file or directory does not exist")
	ErrInputKind    = errors.New("input needs to be a file or a directory")
	ErrIllegalPath  = errors.New("output path contains illegal characters")
	ErrOutputExists = errors.New("output file already exists")
	ErrOutputNotDir = errors.New("output path needs to be a directory")
	ErrUnitsFailed  = errors.New("some files could not be processed")
)

type Warning int

const (
	WarnNotVideo Warning = iota + 1
	WarnDirNotEmpty
)

type Config struct {
	Input         string
	Output        string
	TSOnly        bool
	GeneratorArgs []types.ArgumentResult
	RenderArgs    []types.ArgumentResult
	Log           *logrus.Logger

	// Filled by Validate.
	InputIsDir bool
	Warnings   []Warning
}

// Validate checks the input and output paths and returns the config with
// the output path resolved. It touches the filesystem only to create a
// missing output directory for a batch.
func (c Config) Validate() (Config, error) {
	c.Warnings = nil
	if c.Input == "" {
		return c, ErrInputMissing
	}
	c.Input = filepath.Clean(c.Input)

	fi, err := os.Stat(c.Input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, ErrInputMissing
		}
		return c, fmt.Errorf("stat input: %w", err)
	}
	switch {
	case fi.IsDir():
		c.InputIsDir = true
	case fi.Mode().IsRegular():
		c.InputIsDir = false
		if ok, err := media.IsVideo(c.Input); err == nil && !ok {
			c.Warnings = append(c.Warnings, WarnNotVideo)
		}
	default:
		return c, ErrInputKind
	}

	if c.Output == "" {
		if c.InputIsDir {
			return c, nil
		}
		c.Output = media.AutomaticPath(c.Input, c.TSOnly)
		if exists(c.Output) {
			return c, fmt.Errorf("%w: %s", ErrOutputExists, c.Output)
		}
		return c, nil
	}

	if ch, bad := illegalChar(c.Output, runtime.GOOS); bad {
		return c, fmt.Errorf("%w (%q)", ErrIllegalPath, ch)
	}

	if !c.InputIsDir {
		if exists(c.Output) {
			return c, fmt.Errorf("%w: %s", ErrOutputExists, c.Output)
		}
		return c, nil
	}

	of, err := os.Stat(c.Output)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.Mkdir(c.Output, 0o755); err != nil {
			return c, fmt.Errorf("create output directory: %w", err)
		}
	case err != nil:
		return c, fmt.Errorf("stat output: %w", err)
	case !of.IsDir():
		return c, ErrOutputNotDir
	default:
		entries, err := os.ReadDir(c.Output)
		if err != nil {
			return c, fmt.Errorf("read output directory: %w", err)
		}
		if len(entries) > 0 {
			c.Warnings = append(c.Warnings, WarnDirNotEmpty)
		}
	}
	return c, nil
}

// Run processes a validated config: the single input file, or every video
// file of the input directory in name order. Results list the files that
// completed. A fatal error stops the batch; a UnitError is reported through
// deps and the batch continues, and Run then returns ErrUnitsFailed.
func Run(ctx context.Context, cfg Config, deps usecase.Deps) ([]types.FileResult, error) {
	log := cfg.Log
	if log == nil {
		log = logrus.New()
	}
	if deps.Log == nil {
		deps.Log = log
	}
	uc := usecase.New(deps)

	if !cfg.InputIsDir {
		res, err := uc.Run(ctx, unitInput(cfg, cfg.Input, cfg.Output))
		if err != nil {
			return nil, err
		}
		return []types.FileResult{res.File}, nil
	}

	files, err := media.VideoFiles(cfg.Input, func(path string, err error) {
		log.WithError(err).Debugf("skipping %s", path)
		if deps.Report != nil {
			deps.Report.Warn(fmt.Sprintf("Could not read %s, skipping.", path))
		}
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("found %d video files in %s", len(files), cfg.Input)

	var (
		results []types.FileResult
		failed  int
	)
	for _, in := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		out := batchOutput(cfg, in)
		if exists(out) {
			if deps.Report != nil {
				deps.Report.Warn(fmt.Sprintf("%s already exists, skipping.", out))
			}
			continue
		}

		res, err := uc.Run(ctx, unitInput(cfg, in, out))
		var unit *usecase.UnitError
		switch {
		case errors.As(err, &unit):
			failed++
			log.WithError(err).Debug("work unit failed")
			if deps.Report != nil {
				deps.Report.Error(err.Error())
			}
		case err != nil:
			return results, err
		default:
			results = append(results, res.File)
		}
	}

	if failed > 0 {
		return results, fmt.Errorf("%w: %d of %d", ErrUnitsFailed, failed, len(files))
	}
	return results, nil
}

func unitInput(cfg Config, in, out string) usecase.Input {
	return usecase.Input{
		Input:         in,
		Output:        out,
		TSOnly:        cfg.TSOnly,
		GeneratorArgs: cfg.GeneratorArgs,
		RenderArgs:    cfg.RenderArgs,
	}
}

func batchOutput(cfg Config, in string) string {
	switch {
	case cfg.Output == "":
		return media.AutomaticPath(in, cfg.TSOnly)
	case cfg.TSOnly:
		return filepath.Join(cfg.Output, filepath.Base(media.AutomaticPath(in, true)))
	default:
		return filepath.Join(cfg.Output, filepath.Base(in))
	}
}

func illegalChar(path, goos string) (rune, bool) {
	illegal := "\x00"
	if goos == "windows" {
		var b strings.Builder
		b.WriteString(`<>"|?*`)
		for i := 0; i < 32; i++ {
			b.WriteByte(byte(i))
		}
		illegal = b.String()
	}
	i := strings.IndexAny(path, illegal)
	if i < 0 {
		return 0, false
	}
	return rune(path[i]), true
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
