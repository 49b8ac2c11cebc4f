package usecase

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/lecturecut/internal/domain/media"
	"github.com/forPelevin/lecturecut/internal/ports"
	"github.com/forPelevin/lecturecut/internal/progress"
	"github.com/forPelevin/lecturecut/internal/report"
	"github.com/forPelevin/lecturecut/internal/types"
)

type Deps struct {
	Generator ports.Generator
	Renderer  ports.Renderer
	Progress  *progress.Multiplexer
	Report    *report.Reporter
	Log       *logrus.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Log == nil {
		d.Log = logrus.New()
	}
	if d.Progress == nil {
		d.Progress = progress.New(nil)
	}
	return Usecase{d: d}
}

type Input struct {
	Input         string
	Output        string
	TSOnly        bool
	GeneratorArgs []types.ArgumentResult
	RenderArgs    []types.ArgumentResult
}

type Result struct {
	File types.FileResult
}

// UnitError is a failure local to one input file. A batch reports it and
// moves on to the next file.
type UnitError struct {
	Input string
	Err   error
}

func (e *UnitError) Error() string { return fmt.Sprintf("%s: %v", e.Input, e.Err) }
func (e *UnitError) Unwrap() error { return e.Err }

// Run processes one input file: generate the cut list, then either write
// it as timestamps or hand it to the render module.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	defer u.d.Progress.Reset()

	if u.d.Report != nil {
		u.d.Report.Paths(in.Input, in.Output)
		if ok, err := media.IsMP4(in.Input); err == nil && !ok {
			u.d.Report.NonMP4()
		}
	}

	u.d.Log.Debugf("generating cuts for %s", in.Input)
	gen, err := u.d.Generator.Generate(ctx, in.Input, in.GeneratorArgs, u.d.Progress.Report)
	if err != nil {
		return Result{}, err
	}
	u.d.Log.Debugf("%d cuts, %.2fs -> %.2fs", len(gen.Cuts), gen.Stats.LenPreCut, gen.Stats.LenPostCut)
	// A module call cannot be interrupted, so cancellation is honored once it returns.
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if in.TSOnly {
		if err := WriteTimestamps(in.Output, gen.Cuts); err != nil {
			return Result{}, &UnitError{Input: in.Input, Err: err}
		}
	} else {
		if err := u.d.Renderer.Render(ctx, in.Input, in.Output, gen.Cuts, in.RenderArgs, u.d.Progress.Report); err != nil {
			return Result{}, err
		}
	}

	return Result{File: types.FileResult{Input: in.Input, Output: in.Output, Stats: gen.Stats}}, nil
}

// WriteTimestamps writes one "start,end" line per cut using the shortest
// decimal form of each value.
func WriteTimestamps(path string, cuts types.CutList) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create timestamps file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, c := range cuts {
		fmt.Fprintf(w, "%s,%s\n", formatSeconds(c.Start), formatSeconds(c.End))
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write timestamps file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close timestamps file: %w", err)
	}
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
