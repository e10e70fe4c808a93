package main

import (
	"fmt"
)

// CLI represents the htps command-line interface.
var CLI struct {
	Debug   bool       `help:"Enable debug mode." short:"d" env:"HTPS_DEBUG"`
	Version VersionCmd `cmd:"" help:"Print version information."`
	Help    HelpCmd    `cmd:"" hidden:"" default:"1"`
	Prove   ProveCmd   `cmd:"" help:"Run a proof search against a scenario file's oracle."`
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Printf("htps %s\n", version)
	return nil
}

// HelpCmd prints help.
type HelpCmd struct{}

func (h *HelpCmd) Run() error {
	fmt.Println("Run 'htps --help' for usage.")
	return nil
}
