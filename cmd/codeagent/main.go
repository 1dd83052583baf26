// Command codeagent is the CLI for the agent facade: a one-shot chat,
// an HTTP server, and session inspection, all wired through
// pkg/agent.FacadeBuilder from one loaded pkg/config.Config.
package main

import (
	"fmt"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/driftwood-dev/codeagent/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Chat     ChatCmd     `cmd:"" help:"Send a single message, non-interactively."`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP chat server."`
	Sessions SessionsCmd `cmd:"" help:"List saved sessions."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config   string `short:"c" help:"Path to config file." type:"path"`
	Dir      string `short:"d" help:"Working directory." default:"."`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
	fmt.Printf("codeagent %s\n", version)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("codeagent"),
		kong.Description("An AI coding agent that reads, writes, and executes code."),
	)

	logger.New(logger.Options{Level: cli.LogLevel})

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
