//go:build cgo && (linux || darwin)

// Package nativetest is an in-process module implementing the native ABI.
// It lets tests bind generator and render modules without building a
// shared library. State is global; tests using it must not run in parallel.
package nativetest

/*
#cgo CFLAGS: -I${SRCDIR}/..
#cgo LDFLAGS: -lpthread
#include <pthread.h>
#include <stdlib.h>
#include <string.h>
#include "abi.h"

#define DBL_MAX_ITEMS 128

static char* dbl_version_str = NULL;
static char* dbl_init_error = NULL;
static char* dbl_call_error = NULL;
static int dbl_init_calls = 0;

static Argument dbl_args[DBL_MAX_ITEMS];
static long dbl_args_len = 0;

static Cut dbl_cuts[DBL_MAX_ITEMS];
static long dbl_cuts_len = 0;
static GeneratorStats dbl_stats = {0, 0};

static char* dbl_stages[DBL_MAX_ITEMS];
static long dbl_stages_len = 0;
static int dbl_threaded = 0;
static progress_cb dbl_progress = NULL;

static char* rcv_input = NULL;
static char* rcv_output = NULL;
static char* rcv_long[DBL_MAX_ITEMS];
static char* rcv_value[DBL_MAX_ITEMS];
static long rcv_len = 0;
static Cut rcv_cuts[DBL_MAX_ITEMS];
static long rcv_cuts_len = 0;

static char* dbl_dup(const char* s) {
	if (s == NULL) {
		return NULL;
	}
	size_t n = strlen(s) + 1;
	char* p = malloc(n);
	memcpy(p, s, n);
	return p;
}

static void dbl_clear_received(void) {
	free(rcv_input);
	free(rcv_output);
	rcv_input = NULL;
	rcv_output = NULL;
	for (long i = 0; i < rcv_len; i++) {
		free(rcv_long[i]);
		free(rcv_value[i]);
	}
	rcv_len = 0;
	rcv_cuts_len = 0;
}

static void dbl_reset_arguments(void) {
	for (long i = 0; i < dbl_args_len; i++) {
		free((char*)dbl_args[i].long_name);
		free((char*)dbl_args[i].description);
	}
	dbl_args_len = 0;
}

static void dbl_reset_cuts(void) {
	dbl_cuts_len = 0;
	dbl_stats.len_pre_cut = 0;
	dbl_stats.len_post_cut = 0;
}

static void dbl_reset_stages(void) {
	for (long i = 0; i < dbl_stages_len; i++) {
		free(dbl_stages[i]);
	}
	dbl_stages_len = 0;
	dbl_threaded = 0;
}

static void dbl_reset(void) {
	free(dbl_version_str);
	free(dbl_init_error);
	free(dbl_call_error);
	dbl_version_str = NULL;
	dbl_init_error = NULL;
	dbl_call_error = NULL;
	dbl_init_calls = 0;
	dbl_reset_arguments();
	dbl_reset_cuts();
	dbl_reset_stages();
	dbl_progress = NULL;
	dbl_clear_received();
}

static void dbl_set_version(char* v) {
	free(dbl_version_str);
	dbl_version_str = v;
}

static void dbl_set_init_error(char* msg) {
	free(dbl_init_error);
	dbl_init_error = msg;
}

static void dbl_set_call_error(char* msg) {
	free(dbl_call_error);
	dbl_call_error = msg;
}

static void dbl_push_argument(char short_name, char* long_name, char* description, bool required, bool is_flag) {
	Argument* a = &dbl_args[dbl_args_len++];
	a->short_name = short_name;
	a->long_name = long_name;
	a->description = description;
	a->required = required;
	a->is_flag = is_flag;
}

static void dbl_push_cut(double start, double end) {
	dbl_cuts[dbl_cuts_len].start = start;
	dbl_cuts[dbl_cuts_len].end = end;
	dbl_cuts_len++;
}

static void dbl_set_stats(double pre, double post) {
	dbl_stats.len_pre_cut = pre;
	dbl_stats.len_post_cut = post;
}

static void dbl_push_stage(char* name) {
	dbl_stages[dbl_stages_len++] = name;
}

static void dbl_set_threaded(int threaded) {
	dbl_threaded = threaded;
}

// dbl_scribble overwrites the buffer generate handed out.
static void dbl_scribble(void) {
	for (long i = 0; i < DBL_MAX_ITEMS; i++) {
		dbl_cuts[i].start = -1;
		dbl_cuts[i].end = -1;
	}
}

static void* dbl_stage_worker(void* arg) {
	const char* name = (const char*)arg;
	dbl_progress(name, 0.25);
	dbl_progress(name, 0.5);
	dbl_progress(name, 1.0);
	return NULL;
}

static void dbl_report(progress_cb progress) {
	dbl_progress = progress;
	if (!dbl_threaded) {
		for (long i = 0; i < dbl_stages_len; i++) {
			dbl_stage_worker(dbl_stages[i]);
		}
		return;
	}
	pthread_t threads[DBL_MAX_ITEMS];
	for (long i = 0; i < dbl_stages_len; i++) {
		pthread_create(&threads[i], NULL, dbl_stage_worker, dbl_stages[i]);
	}
	for (long i = 0; i < dbl_stages_len; i++) {
		pthread_join(threads[i], NULL);
	}
}

static void dbl_record(const char* input, const char* output, ArgumentResultList args) {
	dbl_clear_received();
	rcv_input = dbl_dup(input);
	rcv_output = dbl_dup(output);
	for (long i = 0; i < args.length && i < DBL_MAX_ITEMS; i++) {
		rcv_long[i] = dbl_dup(args.results[i].long_name);
		rcv_value[i] = dbl_dup(args.results[i].value);
		rcv_len++;
	}
}

static void dbl_init(error_cb fail) {
	dbl_init_calls++;
	if (dbl_init_error != NULL) {
		fail(dbl_init_error);
	}
}

static const char* dbl_version(error_cb fail) {
	return dbl_version_str;
}

static ArgumentList dbl_get_arguments(error_cb fail) {
	ArgumentList list = {dbl_args_len, dbl_args};
	return list;
}

static GeneratorResult dbl_generate(const char* input, ArgumentResultList args, progress_cb progress, error_cb fail) {
	dbl_record(input, NULL, args);
	if (dbl_call_error != NULL) {
		fail(dbl_call_error);
	}
	dbl_report(progress);
	GeneratorResult res;
	res.cuts.length = dbl_cuts_len;
	res.cuts.cuts = dbl_cuts;
	res.stats = dbl_stats;
	return res;
}

static void dbl_render(const char* input, const char* output, CutList cuts, ArgumentResultList args, progress_cb progress, error_cb fail) {
	dbl_record(input, output, args);
	for (long i = 0; i < cuts.length && i < DBL_MAX_ITEMS; i++) {
		rcv_cuts[i] = cuts.cuts[i];
		rcv_cuts_len++;
	}
	if (dbl_call_error != NULL) {
		fail(dbl_call_error);
	}
	dbl_report(progress);
}

static uintptr_t dbl_symbol(const char* name) {
	if (strcmp(name, "init") == 0) return (uintptr_t)&dbl_init;
	if (strcmp(name, "version") == 0) return (uintptr_t)&dbl_version;
	if (strcmp(name, "get_arguments") == 0) return (uintptr_t)&dbl_get_arguments;
	if (strcmp(name, "generate") == 0) return (uintptr_t)&dbl_generate;
	if (strcmp(name, "render") == 0) return (uintptr_t)&dbl_render;
	return 0;
}

static int dbl_get_init_calls(void) { return dbl_init_calls; }
static const char* dbl_received_input(void) { return rcv_input; }
static const char* dbl_received_output(void) { return rcv_output; }
static long dbl_received_len(void) { return rcv_len; }
static const char* dbl_received_long(long i) { return rcv_long[i]; }
static const char* dbl_received_value(long i) { return rcv_value[i]; }
static long dbl_received_cuts_len(void) { return rcv_cuts_len; }
static Cut dbl_received_cut(long i) { return rcv_cuts[i]; }
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/forPelevin/lecturecut/internal/types"
)

// MaxItems bounds every list the double stores.
const MaxItems = C.DBL_MAX_ITEMS

// Library resolves entry points to the double's C functions. Names listed
// in Missing resolve to nothing.
type Library struct {
	Missing []string
	closed  bool
}

func (l *Library) Symbol(name string) (uintptr, error) {
	for _, m := range l.Missing {
		if m == name {
			return 0, fmt.Errorf("symbol %q not found", name)
		}
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	addr := uintptr(C.dbl_symbol(cname))
	if addr == 0 {
		return 0, fmt.Errorf("symbol %q not found", name)
	}
	return addr, nil
}

func (l *Library) Close() error {
	l.closed = true
	return nil
}

func (l *Library) Closed() bool { return l.closed }

// Reset frees every configured and recorded value.
func Reset() { C.dbl_reset() }

func SetVersion(v string) { C.dbl_set_version(C.CString(v)) }

// SetInitError makes init report msg through the error callback.
func SetInitError(msg string) { C.dbl_set_init_error(C.CString(msg)) }

// SetCallError makes generate and render report msg through the error
// callback before doing their work.
func SetCallError(msg string) { C.dbl_set_call_error(C.CString(msg)) }

// SetArguments replaces the declared arguments. Strings are copied as raw
// bytes, so invalid UTF-8 reaches the host unchanged.
func SetArguments(args []types.Argument) {
	if len(args) > MaxItems {
		panic("nativetest: too many arguments")
	}
	C.dbl_reset_arguments()
	for _, a := range args {
		C.dbl_push_argument(C.char(a.Short), C.CString(a.Long), C.CString(a.Description), C.bool(a.Required), C.bool(a.IsFlag))
	}
}

func SetGeneration(g types.Generation) {
	if len(g.Cuts) > MaxItems {
		panic("nativetest: too many cuts")
	}
	C.dbl_reset_cuts()
	for _, c := range g.Cuts {
		C.dbl_push_cut(C.double(c.Start), C.double(c.End))
	}
	C.dbl_set_stats(C.double(g.Stats.LenPreCut), C.double(g.Stats.LenPostCut))
}

// SetStages makes generate and render report every stage three times. With
// threaded set each stage reports from its own pthread.
func SetStages(names []string, threaded bool) {
	if len(names) > MaxItems {
		panic("nativetest: too many stages")
	}
	C.dbl_reset_stages()
	for _, n := range names {
		C.dbl_push_stage(C.CString(n))
	}
	t := 0
	if threaded {
		t = 1
	}
	C.dbl_set_threaded(C.int(t))
}

// Scribble overwrites the cut buffer the last generate call returned.
func Scribble() { C.dbl_scribble() }

func InitCalls() int { return int(C.dbl_get_init_calls()) }

type Received struct {
	Input  string
	Output string
	Args   []types.ArgumentResult
	Cuts   types.CutList
}

// LastCall returns what the last generate or render call received.
func LastCall() Received {
	var r Received
	if p := C.dbl_received_input(); p != nil {
		r.Input = C.GoString(p)
	}
	if p := C.dbl_received_output(); p != nil {
		r.Output = C.GoString(p)
	}
	for i := C.long(0); i < C.dbl_received_len(); i++ {
		r.Args = append(r.Args, types.ArgumentResult{
			Long:  C.GoString(C.dbl_received_long(i)),
			Value: C.GoString(C.dbl_received_value(i)),
		})
	}
	for i := C.long(0); i < C.dbl_received_cuts_len(); i++ {
		c := C.dbl_received_cut(i)
		r.Cuts = append(r.Cuts, types.Cut{Start: float64(c.start), End: float64(c.end)})
	}
	return r
}
