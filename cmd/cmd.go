package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/rubiojr/dopy/cmd/dev"
	"github.com/rubiojr/dopy/config"
	"github.com/rubiojr/dopy/doc"
	"github.com/rubiojr/dopy/preprocess"
	"github.com/rubiojr/dopy/project"
	"github.com/urfave/cli/v3"
)

// Execute runs the dopy CLI with the given version string.
func Execute(version string) {
	if err := newApp(version).Run(context.Background(), os.Args); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(version string) *cli.Command {
	return &cli.Command{
		Name:                   "dopy",
		Usage:                  "Python with do/end blocks instead of significant indentation",
		Version:                version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug output to stderr",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a " + config.FileName + " file",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			slog.SetDefault(newLogger(os.Stderr, cmd.Bool("verbose")))
			return ctx, nil
		},
		// Allow `dopy script.dopy` as shorthand for `dopy run script.dopy`
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 0 {
				arg := cmd.Args().First()
				if strings.HasSuffix(arg, project.SourceExt) || isDopyScript(arg) {
					return runFile(ctx, cmd, arg, false, cmd.Args().Tail())
				}
			}
			return cli.DefaultShowRootCommandHelp(cmd)
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Transpile a .dopy file and its imports, then run it with Python",
				ArgsUsage: "<file.dopy> [args...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "keep",
						Aliases: []string{"k"},
						Usage:   "Write .py files next to their sources instead of a temp dir",
					},
				},
				Action: runAction,
			},
			{
				Name:      "transpile",
				Usage:     "Rewrite a single .dopy file to Python",
				ArgsUsage: "<file.dopy>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, stdout when empty",
					},
				},
				Action: transpileAction,
			},
			{
				Name:      "tree",
				Usage:     "Transpile every .dopy file under a directory in place",
				ArgsUsage: "[directory]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "jobs",
						Aliases: []string{"j"},
						Usage:   "Parallel files, defaults to the configured value",
					},
				},
				Action: treeAction,
			},
			{
				Name:      "check",
				Usage:     "Validate block structure without writing anything",
				ArgsUsage: "[file.dopy | directory...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print results as JSON",
					},
					&cli.BoolFlag{
						Name:    "no-color",
						Aliases: []string{"C"},
						Usage:   "Disable ANSI color output",
					},
				},
				Action: checkAction,
			},
			{
				Name:      "doc",
				Usage:     "Show documentation for a .dopy file, package directory or symbol",
				ArgsUsage: "<file.dopy | directory> [symbol]",
				Action:    docAction,
			},
			dev.Command(),
		},
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.Load(cmd.String("config"))
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: dopy run [-k] <file.dopy> [args...]")
	}
	return runFile(ctx, cmd, cmd.Args().First(), cmd.Bool("keep"), cmd.Args().Tail())
}

func runFile(ctx context.Context, cmd *cli.Command, file string, keep bool, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	runner := &project.Runner{
		Python:  cfg.Python,
		Builder: project.Builder{Jobs: cfg.Jobs},
	}
	return runner.Run(ctx, file, keep, args...)
}

func transpileAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: dopy transpile [-o output] <file.dopy>")
	}
	output := cmd.String("output")
	// Also check if -o was passed after the filename (urfave quirk)
	if output == "" {
		for i, arg := range os.Args {
			if (arg == "-o" || arg == "--output") && i+1 < len(os.Args) {
				output = os.Args[i+1]
			}
		}
	}

	input := cmd.Args().First()
	res, err := preprocess.TransformFile(input, output)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		slog.Warn(w.Message, "file", input, "line", w.Line)
	}
	if output == "" {
		fmt.Print(res.Output)
		return nil
	}
	slog.Debug("transpiled", "source", input, "target", output, "lines", res.Lines, "depth", res.MaxDepth)
	return nil
}

func treeAction(ctx context.Context, cmd *cli.Command) error {
	dir := "."
	if cmd.NArg() > 0 {
		dir = cmd.Args().First()
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	jobs := cfg.Jobs
	if n := cmd.Int("jobs"); n > 0 {
		jobs = n
	}

	files, err := project.FindSources(dir, cfg.Excluded)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no %s files found in %s", project.SourceExt, dir)
	}

	b := &project.Builder{Jobs: jobs}
	outs, err := b.Build(ctx, files, project.SiblingTarget)
	if err != nil {
		return err
	}
	slog.Info("transpiled", "files", len(outs), "dir", dir)
	return nil
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	targets := cmd.Args().Slice()
	if len(targets) == 0 {
		targets = []string{"."}
	}
	if cmd.Bool("no-color") {
		color.NoColor = true
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var files []string
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return fmt.Errorf("cannot access %s: %w", target, err)
		}
		if !info.IsDir() {
			files = append(files, target)
			continue
		}
		found, err := project.FindSources(target, cfg.Excluded)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no %s files found", project.SourceExt)
	}

	results := project.Check(ctx, files, cfg.Jobs)
	if cmd.Bool("json") {
		if err := writeJSON(cmd.Root().Writer, results); err != nil {
			return err
		}
	} else {
		printCheck(cmd.Root().Writer, results)
	}

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func docAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: dopy doc <file.dopy | directory> [symbol]")
	}
	target := cmd.Args().First()
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", target, err)
	}

	var fd *doc.FileDoc
	if info.IsDir() {
		entry := filepath.Join(target, "__init__"+project.SourceExt)
		if _, err := os.Stat(entry); err != nil {
			entry = ""
		}
		fd, err = doc.ExtractDir(target, entry)
	} else {
		fd, err = doc.ExtractFile(target)
	}
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	if symbol := cmd.Args().Get(1); symbol != "" {
		docStr, sig, found := doc.LookupSymbol(fd, symbol)
		if !found {
			return fmt.Errorf("symbol %s not found in %s", symbol, target)
		}
		fmt.Fprint(w, doc.FormatSymbol(docStr, sig))
		return nil
	}
	fmt.Fprint(w, doc.FormatFile(fd))
	return nil
}

func writeJSON(w io.Writer, results []project.CheckResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printCheck(w io.Writer, results []project.CheckResult) {
	ok := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()
	for _, r := range results {
		if r.OK {
			fmt.Fprintf(w, "%s   %s\n", ok("ok"), r.File)
			continue
		}
		sep := ": "
		if r.Line > 0 {
			sep = ":"
		}
		fmt.Fprintf(w, "%s %s%s%s\n", fail("FAIL"), r.File, sep, r.Message)
	}
}

// isDopyScript checks if a file exists and starts with a shebang naming dopy.
func isDopyScript(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, 64)
	n, _ := f.Read(buf)
	line, _, _ := strings.Cut(string(buf[:n]), "\n")
	return strings.HasPrefix(line, "#!") && strings.Contains(line, "dopy")
}
