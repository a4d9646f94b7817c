package core

import (
	"fmt"
	"log"
	"os"
	"runtime/debug"
)

// HandleCrash is the unified panic handler: log the value and stack, then exit.
// Auxiliary goroutines route through it so a watcher crash never dies silently
func HandleCrash(r any) {
	if r == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "\nCRASH DETECTED: %v\n", r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
	log.Printf("crash: %v", r)

	os.Exit(1)
}

// Go runs a function in a new goroutine with panic recovery.
// Use this instead of the 'go' keyword for engine-owned goroutines
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}
