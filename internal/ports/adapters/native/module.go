// Package native binds generator and render modules built as shared
// libraries to the ports interfaces. Every entry point receives the host's
// error callback as its last parameter (ABIVersion 1).
package native

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/lecturecut/internal/ports"
)

const ABIVersion = 1

type Kind string

const (
	KindGenerator Kind = "generator"
	KindRender    Kind = "render"
)

func (k Kind) entryPoint() (string, error) {
	switch k {
	case KindGenerator:
		return "generate", nil
	case KindRender:
		return "render", nil
	default:
		return "", fmt.Errorf("unknown module kind %q", string(k))
	}
}

var (
	ErrModuleNotFound = errors.New("module not found")
	ErrMissingSymbol  = errors.New("missing entry point")
	ErrInvalidText    = errors.New("invalid text from module")
	ErrInvalidLayout  = errors.New("invalid data layout from module")
	ErrInitFailed     = errors.New("module initialization failed")
)

type NotFoundError struct {
	Kind Kind
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s does not exist. Please compile the %s module first.", e.Path, e.Kind)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrModuleNotFound }

// Library is an opened shared library.
type Library interface {
	Symbol(name string) (uintptr, error)
	Close() error
}

type Options struct {
	// Dir holds the module files. Defaults to DefaultDir().
	Dir string
	// OnError receives messages a module reports through the error
	// callback. It is expected not to return.
	OnError func(msg string)
	Log     *logrus.Logger
}

type Module struct {
	kind    Kind
	path    string
	lib     Library
	onError func(msg string)
	log     *logrus.Logger

	initFn      uintptr
	versionFn   uintptr
	argumentsFn uintptr
	entryFn     uintptr
}

type Generator struct{ *Module }

type Renderer struct{ *Module }

var (
	_ ports.Generator = (*Generator)(nil)
	_ ports.Renderer  = (*Renderer)(nil)
)

// FileName returns the platform file name of a module.
func FileName(kind Kind, goos string) string {
	switch goos {
	case "windows":
		return string(kind) + ".dll"
	case "darwin":
		return "lib" + string(kind) + ".dylib"
	default:
		return "lib" + string(kind) + ".so"
	}
}

// DefaultDir is the modules directory next to the running executable.
func DefaultDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), "modules"), nil
}

func Load(kind Kind, opts Options) (*Module, error) {
	if _, err := kind.entryPoint(); err != nil {
		return nil, err
	}
	dir := opts.Dir
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	path := filepath.Join(dir, FileName(kind, runtime.GOOS))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Kind: kind, Path: path}
		}
		return nil, fmt.Errorf("stat %s module: %w", kind, err)
	}

	lib, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %s module: %w", kind, err)
	}
	m, err := Bind(kind, path, lib, opts)
	if err != nil {
		_ = lib.Close()
		return nil, err
	}
	return m, nil
}

func LoadGenerator(opts Options) (*Generator, error) {
	m, err := Load(KindGenerator, opts)
	if err != nil {
		return nil, err
	}
	return &Generator{m}, nil
}

func LoadRenderer(opts Options) (*Renderer, error) {
	m, err := Load(KindRender, opts)
	if err != nil {
		return nil, err
	}
	return &Renderer{m}, nil
}

// Bind resolves the entry points of an opened library and initializes the
// module. path is informational.
func Bind(kind Kind, path string, lib Library, opts Options) (*Module, error) {
	entry, err := kind.entryPoint()
	if err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = logrus.New()
	}
	onError := opts.OnError
	if onError == nil {
		onError = orphanFail
	}
	m := &Module{kind: kind, path: path, lib: lib, onError: onError, log: log}

	syms := []struct {
		name string
		dst  *uintptr
	}{
		{"init", &m.initFn},
		{"version", &m.versionFn},
		{"get_arguments", &m.argumentsFn},
		{entry, &m.entryFn},
	}
	for _, s := range syms {
		addr, err := lib.Symbol(s.name)
		if err != nil {
			return nil, fmt.Errorf("%s module %s: %w %q: %v", kind, path, ErrMissingSymbol, s.name, err)
		}
		if addr == 0 {
			return nil, fmt.Errorf("%s module %s: %w %q", kind, path, ErrMissingSymbol, s.name)
		}
		*s.dst = addr
	}

	if err := m.initialize(); err != nil {
		return nil, err
	}
	log.Debugf("Loaded %s module from %s", kind, path)
	return m, nil
}

func BindGenerator(path string, lib Library, opts Options) (*Generator, error) {
	m, err := Bind(KindGenerator, path, lib, opts)
	if err != nil {
		return nil, err
	}
	return &Generator{m}, nil
}

func BindRenderer(path string, lib Library, opts Options) (*Renderer, error) {
	m, err := Bind(KindRender, path, lib, opts)
	if err != nil {
		return nil, err
	}
	return &Renderer{m}, nil
}

func (m *Module) Kind() Kind   { return m.kind }
func (m *Module) Path() string { return m.path }

func (m *Module) Close() error {
	if m.lib == nil {
		return nil
	}
	err := m.lib.Close()
	m.lib = nil
	return err
}

func (m *Module) fail(msg string) {
	m.log.Debugf("%s module reported: %s", m.kind, msg)
	m.onError(msg)
}
