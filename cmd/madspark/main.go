// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Exit codes for scripting.
const (
	exitOK       = 0
	exitUsage    = 2
	exitWorkflow = 3
	exitCanceled = 4
)

// usageError marks problems with the invocation itself: bad flags, bad
// topic, bad preset. No LLM call has been made when one is raised.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// canceledError marks a run that ended early on the user's signal.
type canceledError struct{}

func (e *canceledError) Error() string { return "canceled" }

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var usage *usageError
		var canceled *canceledError
		switch {
		case errors.As(err, &usage):
			os.Exit(exitUsage)
		case errors.As(err, &canceled), errors.Is(err, context.Canceled):
			os.Exit(exitCanceled)
		default:
			os.Exit(exitWorkflow)
		}
	}
	os.Exit(exitOK)
}
