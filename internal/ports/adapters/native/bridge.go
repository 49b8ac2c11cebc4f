package native

/*
#include <stdlib.h>
#include "abi.h"

extern void lecturecutProgress(char* stage, double fraction);
extern void lecturecutError(char* message);

static void call_init(uintptr_t fn) {
	((init_fn)fn)((error_cb)lecturecutError);
}

static const char* call_version(uintptr_t fn) {
	return ((version_fn)fn)((error_cb)lecturecutError);
}

static ArgumentList call_get_arguments(uintptr_t fn) {
	return ((get_arguments_fn)fn)((error_cb)lecturecutError);
}

static GeneratorResult call_generate(uintptr_t fn, const char* input, ArgumentResultList args) {
	return ((generate_fn)fn)(input, args, (progress_cb)lecturecutProgress, (error_cb)lecturecutError);
}

static void call_render(uintptr_t fn, const char* input, const char* output, CutList cuts, ArgumentResultList args) {
	((render_fn)fn)(input, output, cuts, args, (progress_cb)lecturecutProgress, (error_cb)lecturecutError);
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/forPelevin/lecturecut/internal/ports"
	"github.com/forPelevin/lecturecut/internal/types"
)

// initialize runs the module's init entry point. A module that reports an
// error during init is never handed out, even when OnError returns.
func (m *Module) initialize() error {
	var reported atomic.Pointer[string]
	release := enter(&sink{fail: func(msg string) {
		reported.CompareAndSwap(nil, &msg)
		m.fail(msg)
	}})
	defer release()
	C.call_init(C.uintptr_t(m.initFn))
	if msg := reported.Load(); msg != nil {
		return fmt.Errorf("%w: %s module: %s", ErrInitFailed, m.kind, *msg)
	}
	return nil
}

func (m *Module) Version() (string, error) {
	release := enter(&sink{fail: m.fail})
	defer release()
	v, err := decodeText(C.call_version(C.uintptr_t(m.versionFn)), "version")
	if err != nil {
		return "", fmt.Errorf("%s module: %w", m.kind, err)
	}
	return v, nil
}

func (m *Module) Arguments() ([]types.Argument, error) {
	release := enter(&sink{fail: m.fail})
	defer release()
	args, err := argumentsFromC(C.call_get_arguments(C.uintptr_t(m.argumentsFn)))
	if err != nil {
		return nil, fmt.Errorf("%s module: %w", m.kind, err)
	}
	m.log.Debugf("%s module declares %d arguments", m.kind, len(args))
	return args, nil
}

func (g *Generator) Generate(ctx context.Context, input string, args []types.ArgumentResult, progress ports.ProgressFunc) (types.Generation, error) {
	if err := ctx.Err(); err != nil {
		return types.Generation{}, err
	}

	var a arena
	defer a.free()
	cInput, err := a.cstring(input)
	if err != nil {
		return types.Generation{}, fmt.Errorf("generate input: %w", err)
	}
	cArgs, err := a.argumentResults(args)
	if err != nil {
		return types.Generation{}, fmt.Errorf("generate arguments: %w", err)
	}

	release := enter(&sink{progress: progress, fail: g.fail})
	defer release()
	res := C.call_generate(C.uintptr_t(g.entryFn), cInput, cArgs)

	cuts, err := cutsFromC(res.cuts)
	if err != nil {
		return types.Generation{}, fmt.Errorf("generator module: %w", err)
	}
	g.log.Debugf("Generator returned %d cuts for %s", len(cuts), input)
	return types.Generation{
		Cuts: cuts,
		Stats: types.GeneratorStats{
			LenPreCut:  float64(res.stats.len_pre_cut),
			LenPostCut: float64(res.stats.len_post_cut),
		},
	}, nil
}

func (r *Renderer) Render(ctx context.Context, input, output string, cuts types.CutList, args []types.ArgumentResult, progress ports.ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var a arena
	defer a.free()
	cInput, err := a.cstring(input)
	if err != nil {
		return fmt.Errorf("render input: %w", err)
	}
	cOutput, err := a.cstring(output)
	if err != nil {
		return fmt.Errorf("render output: %w", err)
	}
	cArgs, err := a.argumentResults(args)
	if err != nil {
		return fmt.Errorf("render arguments: %w", err)
	}
	cCuts := a.cutList(cuts)

	release := enter(&sink{progress: progress, fail: r.fail})
	defer release()
	C.call_render(C.uintptr_t(r.entryFn), cInput, cOutput, cCuts, cArgs)
	r.log.Debugf("Render wrote %s", output)
	return nil
}
