package cli

import (
	cliContext "github.com/mudler/LocalDiffusion/core/cli/context"
)

var CLI struct {
	cliContext.Context `embed:""`

	Run      RunCMD      `cmd:"" help:"Run the LocalDiffusion API server, this is the default command if no other command is specified. Run 'local-diffusion run --help' for more information" default:"withargs"`
	Generate GenerateCMD `cmd:"" help:"Generate a single image from a text prompt and write it to a file"`
}
