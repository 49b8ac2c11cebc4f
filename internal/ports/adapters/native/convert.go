package native

/*
#include "abi.h"
*/
import "C"

import (
	"fmt"
	"unicode/utf8"
	"unsafe"

	"github.com/forPelevin/lecturecut/internal/types"
)

func decodeText(p *C.char, field string) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: %s is NULL", ErrInvalidText, field)
	}
	s := C.GoString(p)
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidText, field)
	}
	return s, nil
}

func argumentFromC(a C.Argument) (types.Argument, error) {
	short := byte(a.short_name)
	if short != 0 && (short <= ' ' || short > '~' || short == '-') {
		return types.Argument{}, fmt.Errorf("%w: short flag 0x%02x is not a printable ASCII character", ErrInvalidText, short)
	}
	long, err := decodeText(a.long_name, "argument name")
	if err != nil {
		return types.Argument{}, err
	}
	desc, err := decodeText(a.description, fmt.Sprintf("description of --%s", long))
	if err != nil {
		return types.Argument{}, err
	}
	return types.Argument{
		Short:       short,
		Long:        long,
		Description: desc,
		Required:    bool(a.required),
		IsFlag:      bool(a.is_flag),
	}, nil
}

func argumentsFromC(list C.ArgumentList) ([]types.Argument, error) {
	n := int(list.length)
	if n < 0 {
		return nil, fmt.Errorf("%w: argument list length %d", ErrInvalidLayout, n)
	}
	if n == 0 {
		return nil, nil
	}
	if list.arguments == nil {
		return nil, fmt.Errorf("%w: argument list of length %d has no buffer", ErrInvalidLayout, n)
	}
	recs := unsafe.Slice((*C.Argument)(unsafe.Pointer(list.arguments)), n)
	out := make([]types.Argument, 0, n)
	for _, rec := range recs {
		arg, err := argumentFromC(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}

func (a *arena) argumentResults(results []types.ArgumentResult) (C.ArgumentResultList, error) {
	var list C.ArgumentResultList
	if len(results) == 0 {
		return list, nil
	}
	buf := a.calloc(len(results), C.size_t(unsafe.Sizeof(C.ArgumentResult{})))
	recs := unsafe.Slice((*C.ArgumentResult)(buf), len(results))
	for i, r := range results {
		long, err := a.cstring(r.Long)
		if err != nil {
			return list, err
		}
		value, err := a.cstring(r.Value)
		if err != nil {
			return list, err
		}
		recs[i].long_name = long
		recs[i].value = value
	}
	list.length = C.long(len(results))
	list.results = (*C.ArgumentResult)(buf)
	return list, nil
}

func (a *arena) cutList(cuts types.CutList) C.CutList {
	var list C.CutList
	if len(cuts) == 0 {
		return list
	}
	buf := a.calloc(len(cuts), C.size_t(unsafe.Sizeof(C.Cut{})))
	recs := unsafe.Slice((*C.Cut)(buf), len(cuts))
	for i, c := range cuts {
		recs[i].start = C.double(c.Start)
		recs[i].end = C.double(c.End)
	}
	list.length = C.long(len(cuts))
	list.cuts = (*C.Cut)(buf)
	return list
}

// cutsFromC copies a module owned cut buffer into Go memory.
func cutsFromC(list C.CutList) (types.CutList, error) {
	n := int(list.length)
	if n < 0 {
		return nil, fmt.Errorf("%w: cut list length %d", ErrInvalidLayout, n)
	}
	if n == 0 {
		return types.CutList{}, nil
	}
	if list.cuts == nil {
		return nil, fmt.Errorf("%w: cut list of length %d has no buffer", ErrInvalidLayout, n)
	}
	recs := unsafe.Slice((*C.Cut)(unsafe.Pointer(list.cuts)), n)
	out := make(types.CutList, n)
	for i, c := range recs {
		out[i] = types.Cut{Start: float64(c.start), End: float64(c.end)}
	}
	return out, nil
}
