package main

import "time"

// Flag structs to decouple cobra from logic for testing.

type GlobalFlags struct {
	ConfigPath string
}

type PlanFlags struct {
	ConfigPath string
	Argv       bool // print the command line instead of the invocation JSON
}

type ApplyFlags struct {
	ConfigPath string
	Ensure     string // optional override of [store].ensure
	// Remote daemon connection
	APIUrl     string
	APITimeout time.Duration
}

type StatusFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

type StopFlags struct {
	Wait       time.Duration
	APIUrl     string
	APITimeout time.Duration
}

type ServeFlags struct {
	ConfigPath string
	Listen     string // overrides [server].listen when set
}
