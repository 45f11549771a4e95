package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/flowgridgo/internal/app"
	"github.com/vk/flowgridgo/internal/cli"
	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/hcl"
	"github.com/vk/flowgridgo/internal/yaml"
)

// main is the entrypoint for the flowgridgo application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, parseErr := cli.Parse(args, outW)
	if parseErr != nil {
		return parseErr
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical startup errors, so we recover here to
	// provide a clean exit message to the user.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	loader := pickLoader(appConfig)
	flowgridApp := app.NewApp(outW, appConfig, loader)

	return flowgridApp.Run(context.Background())
}

// pickLoader selects the definition front end. "auto" decides by file
// extension and defaults to HCL for directories.
func pickLoader(appConfig *app.Config) config.Loader {
	switch appConfig.Format {
	case "hcl":
		return hcl.NewLoader()
	case "yaml":
		return yaml.NewLoader()
	}
	ext := strings.ToLower(filepath.Ext(appConfig.DefinitionPath))
	if ext == ".yaml" || ext == ".yml" {
		return yaml.NewLoader()
	}
	return hcl.NewLoader()
}
