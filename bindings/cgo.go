package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"unsafe"
)

// deltactl_open returns a handle for a new instance, or -1. options is an
// optional JSON object (see openOptions); NULL uses the defaults.
//
//export deltactl_open
func deltactl_open(options *C.char) C.int {
	var goOptions string
	if options != nil {
		goOptions = C.GoString(options)
	}
	return C.int(openHandle(goOptions))
}

//export deltactl_close
func deltactl_close(handle C.int) {
	closeHandle(int(handle))
}

// deltactl_execute runs one JSON command and returns a JSON response that
// the caller must release with deltactl_free.
//
//export deltactl_execute
func deltactl_execute(handle C.int, request *C.char) *C.char {
	return C.CString(string(execute(int(handle), C.GoString(request))))
}

//export deltactl_free
func deltactl_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func main() {}
