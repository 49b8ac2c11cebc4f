//go:build darwin || linux

package native

import (
	"fmt"

	"github.com/ebitengine/purego"
)

type dynamicLibrary struct {
	path   string
	handle uintptr
}

// Open loads a shared library with all symbols resolved up front.
func Open(path string) (Library, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen %s: %w", path, err)
	}
	return &dynamicLibrary{path: path, handle: h}, nil
}

func (l *dynamicLibrary) Symbol(name string) (uintptr, error) {
	addr, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return 0, fmt.Errorf("dlsym %s: %w", name, err)
	}
	return addr, nil
}

func (l *dynamicLibrary) Close() error {
	return purego.Dlclose(l.handle)
}
