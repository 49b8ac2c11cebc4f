//go:build !darwin && !linux && !windows

package native

import (
	"fmt"
	"runtime"
)

func Open(path string) (Library, error) {
	return nil, fmt.Errorf("open %s: dynamic modules are not supported on %s", path, runtime.GOOS)
}
