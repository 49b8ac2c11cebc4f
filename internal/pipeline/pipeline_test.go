package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/lecturecut/internal/ports"
	"github.com/forPelevin/lecturecut/internal/report"
	"github.com/forPelevin/lecturecut/internal/types"
	"github.com/forPelevin/lecturecut/internal/usecase"
)

var mp4Header = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
	'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
	'i', 's', 'o', 'm', 'm', 'p', '4', '2',
}

type fakeGenerator struct {
	cuts  types.CutList
	stats types.GeneratorStats
	err   error
	calls []string
}

func (f *fakeGenerator) Version() (string, error)             { return "gen", nil }
func (f *fakeGenerator) Arguments() ([]types.Argument, error) { return nil, nil }
func (f *fakeGenerator) Close() error                         { return nil }

func (f *fakeGenerator) Generate(_ context.Context, input string, _ []types.ArgumentResult, progress ports.ProgressFunc) (types.Generation, error) {
	f.calls = append(f.calls, input)
	progress("Analyzing", 1)
	return types.Generation{Cuts: f.cuts, Stats: f.stats}, f.err
}

type fakeRenderer struct {
	outputs []string
	cancel  context.CancelFunc
}

func (f *fakeRenderer) Version() (string, error)             { return "render", nil }
func (f *fakeRenderer) Arguments() ([]types.Argument, error) { return nil, nil }
func (f *fakeRenderer) Close() error                         { return nil }

func (f *fakeRenderer) Render(_ context.Context, _, output string, _ types.CutList, _ []types.ArgumentResult, _ ports.ProgressFunc) error {
	f.outputs = append(f.outputs, output)
	if f.cancel != nil {
		f.cancel()
	}
	return os.WriteFile(output, []byte("rendered"), 0o644)
}

func write(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testDeps(gen ports.Generator, render ports.Renderer) (usecase.Deps, *bytes.Buffer) {
	var buf bytes.Buffer
	return usecase.Deps{
		Generator: gen,
		Renderer:  render,
		Report:    &report.Reporter{Out: &buf, Err: &buf, Exit: func(int) {}},
	}, &buf
}

// A single file with --tsonly ends up as a timestamps file next to it.
func TestRun_TimestampsOnlySingleFile(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "lecture.mp4")
	write(t, in, mp4Header)

	cfg, err := Config{Input: in, TSOnly: true}.Validate()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, "lecture_cut.txt"), cfg.Output)
	require.Empty(t, cfg.Warnings)

	gen := &fakeGenerator{cuts: types.CutList{{Start: 2, End: 4}}, stats: types.GeneratorStats{LenPreCut: 6, LenPostCut: 4}}
	render := &fakeRenderer{}
	deps, _ := testDeps(gen, render)

	rows, err := Run(context.Background(), cfg, deps)

	require.NoError(t, err)
	b, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, "2,4\n", string(b))
	assert.Empty(t, render.outputs)
	require.Len(t, rows, 1)
	assert.Equal(t, types.FileResult{Input: in, Output: cfg.Output, Stats: gen.stats}, rows[0])
}

// Only video content in the input directory is processed.
func TestRun_BatchProcessesOnlyVideos(t *testing.T) {
	tmp := t.TempDir()
	inDir := filepath.Join(tmp, "in")
	write(t, filepath.Join(inDir, "a.mp4"), mp4Header)
	write(t, filepath.Join(inDir, "b.txt"), []byte("notes"))
	write(t, filepath.Join(inDir, "c.jpg"), []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00})
	outDir := filepath.Join(tmp, "out")

	cfg, err := Config{Input: inDir, Output: outDir}.Validate()
	require.NoError(t, err)
	require.True(t, cfg.InputIsDir)
	require.DirExists(t, outDir, "missing output directory is created")

	gen := &fakeGenerator{}
	render := &fakeRenderer{}
	deps, _ := testDeps(gen, render)

	rows, err := Run(context.Background(), cfg, deps)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, filepath.Join(inDir, "a.mp4"), rows[0].Input)
	assert.Equal(t, []string{filepath.Join(outDir, "a.mp4")}, render.outputs)
	assert.Equal(t, []string{filepath.Join(inDir, "a.mp4")}, gen.calls)
}

// An existing output for a single file stops before any module work.
func TestValidate_ExistingOutputFails(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "x.mp4")
	out := filepath.Join(tmp, "y.mp4")
	write(t, in, mp4Header)
	write(t, out, []byte("old"))

	_, err := Config{Input: in, Output: out}.Validate()
	require.ErrorIs(t, err, ErrOutputExists)

	_, err = Config{Input: in, Output: out, TSOnly: true}.Validate()
	require.ErrorIs(t, err, ErrOutputExists)

	write(t, filepath.Join(tmp, "x_cut.mp4"), []byte("old"))
	_, err = Config{Input: in}.Validate()
	require.ErrorIs(t, err, ErrOutputExists)
}

func TestValidate(t *testing.T) {
	tmp := t.TempDir()
	video := filepath.Join(tmp, "v.mp4")
	notes := filepath.Join(tmp, "notes.txt")
	dir := filepath.Join(tmp, "dir")
	full := filepath.Join(tmp, "full")
	write(t, video, mp4Header)
	write(t, notes, []byte("hello"))
	write(t, filepath.Join(dir, "v.mp4"), mp4Header)
	write(t, filepath.Join(full, "keep.mp4"), []byte("x"))

	cases := []struct {
		name     string
		cfg      Config
		wantErr  error
		wantOut  string
		warnings []Warning
	}{
		{name: "missing input", cfg: Config{Input: filepath.Join(tmp, "nope.mp4")}, wantErr: ErrInputMissing},
		{name: "empty input", cfg: Config{}, wantErr: ErrInputMissing},
		{name: "automatic output", cfg: Config{Input: video}, wantOut: filepath.Join(tmp, "v_cut.mp4")},
		{name: "automatic timestamps", cfg: Config{Input: video, TSOnly: true}, wantOut: filepath.Join(tmp, "v_cut.txt")},
		{name: "explicit output", cfg: Config{Input: video, Output: filepath.Join(tmp, "o.mp4")}, wantOut: filepath.Join(tmp, "o.mp4")},
		{name: "non video warns", cfg: Config{Input: notes}, wantOut: filepath.Join(tmp, "notes_cut.txt"), warnings: []Warning{WarnNotVideo}},
		{name: "nul in output", cfg: Config{Input: video, Output: "o\x00.mp4"}, wantErr: ErrIllegalPath},
		{name: "dir without output", cfg: Config{Input: dir}},
		{name: "dir into file", cfg: Config{Input: dir, Output: video}, wantErr: ErrOutputNotDir},
		{name: "dir into non empty dir", cfg: Config{Input: dir, Output: full}, wantOut: full, warnings: []Warning{WarnDirNotEmpty}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cfg.Validate()
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if got.Output != tc.wantOut {
				t.Fatalf("output = %q, want %q", got.Output, tc.wantOut)
			}
			assert.Equal(t, tc.warnings, got.Warnings)
		})
	}
}

func TestIllegalChar(t *testing.T) {
	cases := []struct {
		path string
		goos string
		want bool
	}{
		{path: "out/file.mp4", goos: "linux", want: false},
		{path: "out/fi?le.mp4", goos: "linux", want: false},
		{path: "out/fi\x00le.mp4", goos: "linux", want: true},
		{path: `C:\out\file.mp4`, goos: "windows", want: false},
		{path: `C:\out\fi?le.mp4`, goos: "windows", want: true},
		{path: "C:\\out\\fi\tle.mp4", goos: "windows", want: true},
		{path: `C:\out\"file".mp4`, goos: "windows", want: true},
	}
	for _, tc := range cases {
		if _, got := illegalChar(tc.path, tc.goos); got != tc.want {
			t.Fatalf("illegalChar(%q, %s) = %v, want %v", tc.path, tc.goos, got, tc.want)
		}
	}
}

func TestRun_BatchSkipsExistingOutputs(t *testing.T) {
	tmp := t.TempDir()
	inDir := filepath.Join(tmp, "in")
	write(t, filepath.Join(inDir, "a.mp4"), mp4Header)
	write(t, filepath.Join(inDir, "b.mp4"), mp4Header)
	outDir := filepath.Join(tmp, "out")

	cfg, err := Config{Input: inDir, Output: outDir, TSOnly: true}.Validate()
	require.NoError(t, err)
	write(t, filepath.Join(outDir, "a_cut.txt"), []byte("old"))

	gen := &fakeGenerator{cuts: types.CutList{{Start: 1, End: 2}}}
	deps, buf := testDeps(gen, &fakeRenderer{})

	rows, err := Run(context.Background(), cfg, deps)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, filepath.Join(inDir, "b.mp4"), rows[0].Input)
	assert.Contains(t, buf.String(), "already exists, skipping")
	b, err := os.ReadFile(filepath.Join(outDir, "a_cut.txt"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(b))
}

func TestRun_BatchReportsUnitErrors(t *testing.T) {
	tmp := t.TempDir()
	inDir := filepath.Join(tmp, "in")
	write(t, filepath.Join(inDir, "a.mp4"), mp4Header)
	write(t, filepath.Join(inDir, "b.mp4"), mp4Header)
	outDir := filepath.Join(tmp, "out")

	cfg, err := Config{Input: inDir, Output: outDir, TSOnly: true}.Validate()
	require.NoError(t, err)
	// removing the output directory makes every timestamps write fail.
	require.NoError(t, os.Remove(outDir))

	gen := &fakeGenerator{cuts: types.CutList{{Start: 1, End: 2}}}
	deps, buf := testDeps(gen, &fakeRenderer{})

	rows, err := Run(context.Background(), cfg, deps)

	require.ErrorIs(t, err, ErrUnitsFailed)
	assert.Empty(t, rows)
	assert.Len(t, gen.calls, 2, "the batch moves on after a failed unit")
	assert.Contains(t, buf.String(), "create timestamps file")
}

func TestRun_FatalErrorStopsBatch(t *testing.T) {
	tmp := t.TempDir()
	inDir := filepath.Join(tmp, "in")
	write(t, filepath.Join(inDir, "a.mp4"), mp4Header)
	write(t, filepath.Join(inDir, "b.mp4"), mp4Header)

	cfg, err := Config{Input: inDir, Output: filepath.Join(tmp, "out")}.Validate()
	require.NoError(t, err)

	boom := errors.New("module gone")
	gen := &fakeGenerator{err: boom}
	deps, _ := testDeps(gen, &fakeRenderer{})

	_, err = Run(context.Background(), cfg, deps)

	require.ErrorIs(t, err, boom)
	assert.Len(t, gen.calls, 1)
}

func TestRun_CancelBetweenUnits(t *testing.T) {
	tmp := t.TempDir()
	inDir := filepath.Join(tmp, "in")
	write(t, filepath.Join(inDir, "a.mp4"), mp4Header)
	write(t, filepath.Join(inDir, "b.mp4"), mp4Header)

	cfg, err := Config{Input: inDir, Output: filepath.Join(tmp, "out")}.Validate()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	render := &fakeRenderer{cancel: cancel}
	deps, _ := testDeps(&fakeGenerator{}, render)

	rows, err := Run(ctx, cfg, deps)

	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rows, 1, "the running unit completes")
	assert.Len(t, render.outputs, 1)
}

func TestRun_BatchFollowsSymlinksAndSkipsBrokenOnes(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	write(t, filepath.Join(src, "lecture.mp4"), mp4Header)
	inDir := filepath.Join(tmp, "in")
	write(t, filepath.Join(inDir, "b.mp4"), mp4Header)
	if err := os.Symlink(filepath.Join(src, "lecture.mp4"), filepath.Join(inDir, "a.mp4")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(src, "missing.mp4"), filepath.Join(inDir, "broken.mp4")))

	cfg, err := Config{Input: inDir, Output: filepath.Join(tmp, "out"), TSOnly: true}.Validate()
	require.NoError(t, err)

	gen := &fakeGenerator{cuts: types.CutList{{Start: 1, End: 2}}}
	deps, buf := testDeps(gen, &fakeRenderer{})

	rows, err := Run(context.Background(), cfg, deps)

	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, []string{filepath.Join(inDir, "a.mp4"), filepath.Join(inDir, "b.mp4")}, gen.calls)
	assert.Contains(t, buf.String(), "broken.mp4, skipping")
}
