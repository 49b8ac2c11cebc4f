package native

/*
#include "abi.h"
*/
import "C"

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/forPelevin/lecturecut/internal/ports"
)

// sink receives the callbacks of the native call currently in flight.
type sink struct {
	progress ports.ProgressFunc
	fail     func(msg string)
}

var (
	callMu  sync.Mutex
	current atomic.Pointer[sink]

	// orphanFail handles errors a module reports while no call is bound.
	orphanFail = func(msg string) {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", msg)
		os.Exit(1)
	}
)

// enter serializes native calls and binds s for the duration of one.
func enter(s *sink) (release func()) {
	callMu.Lock()
	current.Store(s)
	return func() {
		current.Store(nil)
		callMu.Unlock()
	}
}

//export lecturecutProgress
func lecturecutProgress(stage *C.char, fraction C.double) {
	if stage == nil {
		return
	}
	s := current.Load()
	if s == nil || s.progress == nil {
		return
	}
	s.progress(strings.ToValidUTF8(C.GoString(stage), "�"), float64(fraction))
}

//export lecturecutError
func lecturecutError(message *C.char) {
	msg := "module reported an error without a message"
	if message != nil {
		msg = strings.ToValidUTF8(C.GoString(message), "�")
	}
	s := current.Load()
	if s == nil || s.fail == nil {
		orphanFail(msg)
		return
	}
	s.fail(msg)
}
