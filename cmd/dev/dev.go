// Package dev implements developer tooling subcommands for dopy.
package dev

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rubiojr/dopy/preprocess"
	"github.com/rubiojr/dopy/project"
	"github.com/urfave/cli/v3"
)

// Command returns the "dev" CLI command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "dev",
		Usage: "Developer tools for dopy",
		Commands: []*cli.Command{
			linesCommand(),
			markersCommand(),
			importsCommand(),
		},
	}
}

func linesCommand() *cli.Command {
	return &cli.Command{
		Name:      "lines",
		Usage:     "Print the logical lines of a .dopy file",
		ArgsUsage: "<file.dopy>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			src, err := readSource(cmd, "lines")
			if err != nil {
				return err
			}
			printLines(cmd.Root().Writer, preprocess.Normalize(src))
			return nil
		},
	}
}

func markersCommand() *cli.Command {
	return &cli.Command{
		Name:      "markers",
		Usage:     "Print the do/end markers that take part in block structure",
		ArgsUsage: "<file.dopy>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			src, err := readSource(cmd, "markers")
			if err != nil {
				return err
			}
			printMarkers(cmd.Root().Writer, preprocess.Markers(src))
			return nil
		},
	}
}

func importsCommand() *cli.Command {
	return &cli.Command{
		Name:      "imports",
		Usage:     "Print the local .dopy modules a program imports",
		ArgsUsage: "<main.dopy>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return fmt.Errorf("usage: dopy dev imports <main.dopy>")
			}
			main := cmd.Args().First()
			files, err := project.CollectImports(filepath.Dir(main), main)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.Root().Writer, f)
			}
			return nil
		},
	}
}

func readSource(cmd *cli.Command, name string) (string, error) {
	if cmd.NArg() < 1 {
		return "", fmt.Errorf("usage: dopy dev %s <file.dopy>", name)
	}
	path := cmd.Args().First()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &preprocess.FileError{Path: path, Op: preprocess.OpRead, Err: err}
	}
	return string(data), nil
}

func printLines(w io.Writer, lines []preprocess.LogicalLine) {
	for _, l := range lines {
		span := fmt.Sprint(l.Line)
		if l.EndLine != l.Line {
			span = fmt.Sprintf("%d-%d", l.Line, l.EndLine)
		}
		fmt.Fprintf(w, "%-7s %q\n", span, l.Content)
	}
}

func printMarkers(w io.Writer, markers []preprocess.BlockMarker) {
	for _, m := range markers {
		fmt.Fprintf(w, "%d:%d\t%-5s\t%s\n", m.Line, m.Offset, m.Kind, strings.SplitN(m.Text, "\n", 2)[0])
	}
}
