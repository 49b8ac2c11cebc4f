package native

/*
#include <stdlib.h>
#include "abi.h"
*/
import "C"

import (
	"fmt"
	"strings"
	"unsafe"
)

// arena owns every C allocation made for one native call. free releases
// all of them once the call has returned.
type arena struct {
	ptrs []unsafe.Pointer
}

func (a *arena) cstring(s string) (*C.char, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidText, s)
	}
	p := C.CString(s)
	a.ptrs = append(a.ptrs, unsafe.Pointer(p))
	return p, nil
}

func (a *arena) calloc(n int, size C.size_t) unsafe.Pointer {
	p := C.calloc(C.size_t(n), size)
	if p == nil {
		panic("native: calloc failed")
	}
	a.ptrs = append(a.ptrs, p)
	return p
}

func (a *arena) free() {
	for i := len(a.ptrs) - 1; i >= 0; i-- {
		C.free(a.ptrs[i])
	}
	a.ptrs = nil
}

func (a *arena) len() int { return len(a.ptrs) }
