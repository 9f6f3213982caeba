package main

import (
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/mudler/LocalDiffusion/core/cli"
	"github.com/mudler/LocalDiffusion/internal"
	"github.com/mudler/xlog"
)

func main() {
	var err error

	// Initialize xlog at a level of INFO, we will set the desired level after we parse the CLI options
	xlog.SetLogger(xlog.NewLogger(xlog.LogLevel("info"), "text"))

	// handle loading environment variables from .env files
	envFiles := []string{".env", "local-diffusion.env"}
	homeDir, err := os.UserHomeDir()
	if err == nil {
		envFiles = append(envFiles, filepath.Join(homeDir, "local-diffusion.env"), filepath.Join(homeDir, ".config/local-diffusion.env"))
	}
	envFiles = append(envFiles, "/etc/local-diffusion.env")

	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			xlog.Debug("env file found, loading environment variables from file", "envFile", envFile)
			err = godotenv.Load(envFile)
			if err != nil {
				xlog.Error("failed to load environment variables from file", "error", err, "envFile", envFile)
				continue
			}
		}
	}

	ctx := kong.Parse(&cli.CLI,
		kong.Description(
			`  LocalDiffusion serves text to image and image to image generation over HTTP, backed by a Stable Diffusion model.

Generated images are stored on disk and listed by the gallery endpoint.

Version: ${version}
`,
		),
		kong.UsageOnError(),
		kong.Vars{
			"basepath": kong.ExpandPath("."),
			"version":  internal.PrintableVersion(),
		},
	)

	// --debug is kept for compatibility with older setups
	logLevel := "info"
	if cli.CLI.Debug && cli.CLI.LogLevel == nil {
		logLevel = "debug"
		cli.CLI.LogLevel = &logLevel
	}

	if cli.CLI.LogLevel == nil {
		cli.CLI.LogLevel = &logLevel
	}

	xlog.SetLogger(xlog.NewLogger(xlog.LogLevel(*cli.CLI.LogLevel), *cli.CLI.LogFormat))

	err = ctx.Run(&cli.CLI.Context)
	if err != nil {
		xlog.Fatal("Error running the application", "error", err)
	}
}
