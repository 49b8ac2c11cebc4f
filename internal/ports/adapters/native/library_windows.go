//go:build windows

package native

import (
	"fmt"

	"golang.org/x/sys/windows"
)

type dynamicLibrary struct {
	dll *windows.DLL
}

func Open(path string) (Library, error) {
	dll, err := windows.LoadDLL(path)
	if err != nil {
		return nil, fmt.Errorf("LoadLibrary %s: %w", path, err)
	}
	return &dynamicLibrary{dll: dll}, nil
}

func (l *dynamicLibrary) Symbol(name string) (uintptr, error) {
	proc, err := l.dll.FindProc(name)
	if err != nil {
		return 0, fmt.Errorf("GetProcAddress %s: %w", name, err)
	}
	return proc.Addr(), nil
}

func (l *dynamicLibrary) Close() error {
	return l.dll.Release()
}
