package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	if err := NewCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewCommand() *cli.Command {
	return &cli.Command{
		Name:                  "flowforge",
		Usage:                 "Build and run Input -> LLM -> Output pipelines",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			ServeCommand(),
			RunCommand(),
		},
	}
}
