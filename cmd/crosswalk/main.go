// Package main provides the CLI entry point for crosswalk.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/ndisidore/crosswalk/internal/batch"
	"github.com/ndisidore/crosswalk/internal/progress"
	"github.com/ndisidore/crosswalk/internal/sink"
	"github.com/ndisidore/crosswalk/pkg/harvest"
	"github.com/ndisidore/crosswalk/pkg/logctx"
	"github.com/ndisidore/crosswalk/pkg/mapdef"
	"github.com/ndisidore/crosswalk/pkg/mapper"
	"github.com/ndisidore/crosswalk/pkg/mapping"
	"github.com/ndisidore/crosswalk/pkg/registry"
)

// errAmbiguousMapping indicates a definition file with several mappings and
// no --mapping selection.
var errAmbiguousMapping = errors.New("definition file declares several mappings; select one with --mapping")

// errUnknownProgress indicates an unrecognized --progress mode.
var errUnknownProgress = errors.New("unknown progress mode")

// app bundles dependencies so CLI action handlers become testable methods.
type app struct {
	readRecords func(path string) ([]harvest.Record, error)
	stdout      io.Writer
	stderr      io.Writer
	isTTY       bool
	format      string // resolved output format (pretty, json, text)
}

func main() {
	a := &app{
		readRecords: readRecordsFile,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		isTTY:       term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("CI") == "",
	}

	if err := a.command().Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:  "crosswalk",
		Usage: "map harvested records into typed objects with declarative mappings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Usage:   "output format (auto, pretty, json, text)",
				Value:   "auto",
				Sources: cli.EnvVars("CROSSWALK_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("CROSSWALK_LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			a.format = cmd.String("format")
			if a.format == "auto" {
				if a.isTTY {
					a.format = "pretty"
				} else {
					a.format = "text"
				}
			}
			var level slog.Level
			if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
				return ctx, fmt.Errorf("invalid log level %q: %w", cmd.String("log-level"), err)
			}
			logger, err := progress.NewLogger(a.stderr, a.format, level)
			if err != nil {
				return ctx, fmt.Errorf("initializing logger: %w", err)
			}
			slog.SetDefault(logger)
			return logctx.With(ctx, logger), nil
		},
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "validate a KDL mapping-definition file",
				ArgsUsage: "<file>",
				Action:    a.validateAction,
			},
			{
				Name:      "map",
				Usage:     "map an NDJSON record stream through a mapping file",
				ArgsUsage: "<mapping-file> <records-file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mapping",
						Usage: "mapping name to run (defaults to the file's only mapping)",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "output file for mapped objects (- for stdout)",
						Value:   "-",
					},
					&cli.IntFlag{
						Name:    "parallelism",
						Aliases: []string{"j"},
						Usage:   "max concurrent records (0 = sequential)",
						Value:   0,
					},
					&cli.StringFlag{
						Name:  "progress",
						Usage: "progress output mode (auto, tui, plain, quiet)",
						Value: "auto",
					},
					&cli.BoolFlag{
						Name:  "boring",
						Usage: "use ASCII instead of emoji in TUI output",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "re-run when the mapping file changes",
					},
				},
				Action: a.mapAction,
			},
			{
				Name:   "transforms",
				Usage:  "list the named transforms available in mapping files",
				Action: a.transformsAction,
			},
		},
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if err != nil {
				_, _ = fmt.Fprintf(a.stderr, "error: %v\n", err)
			}
		},
	}
}

func (a *app) validateAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("usage: crosswalk validate <file>")
	}

	mappings, err := mapdef.ParseFile(path)
	if err != nil {
		return err
	}

	a.printSummary(path, mappings)
	return nil
}

func (a *app) printSummary(path string, mappings []*mapping.Mapping) {
	_, _ = fmt.Fprintf(a.stdout, "%s is valid\n", path)
	_, _ = fmt.Fprintf(a.stdout, "  Mappings: %d\n", len(mappings))
	for _, m := range mappings {
		_, _ = fmt.Fprintf(a.stdout, "    - %s (format: %s, properties: %s)\n",
			m.Name(), m.Format().Name(), strings.Join(m.Properties(), ", "))
	}
}

func (a *app) transformsAction(_ context.Context, _ *cli.Command) error {
	for _, name := range mapdef.Transforms() {
		_, _ = fmt.Fprintln(a.stdout, name)
	}
	return nil
}

func (a *app) mapAction(ctx context.Context, cmd *cli.Command) error {
	defPath := cmd.Args().First()
	recPath := cmd.Args().Get(1)
	if defPath == "" || recPath == "" {
		return errors.New("usage: crosswalk map <mapping-file> <records-file>")
	}
	if cmd.Int("parallelism") < 0 {
		return fmt.Errorf("invalid value %d for flag --parallelism: must be >= 0", cmd.Int("parallelism"))
	}

	reg := registry.New()
	mappings, err := mapdef.Load(defPath, reg)
	if err != nil {
		return err
	}
	name, err := selectMapping(cmd.String("mapping"), mappings)
	if err != nil {
		return fmt.Errorf("%s: %w", defPath, err)
	}

	out, closeOut, err := a.openOut(cmd.String("out"))
	if err != nil {
		return err
	}
	defer closeOut()

	run := func(ctx context.Context) error {
		records, err := a.readRecords(recPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", recPath, err)
		}

		display, err := a.selectDisplay(cmd.String("progress"), cmd.Bool("boring"), len(records))
		if err != nil {
			return err
		}

		sum, err := batch.Run(ctx, batch.Input{
			Mapper:      mapper.New(reg),
			Mapping:     name,
			Records:     records,
			Parallelism: int(cmd.Int("parallelism")),
			Display:     display,
			Sink:        sink.NewNDJSON(out, name),
		})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.stderr, "%s: %d records, %d mapped, %d failed\n",
			name, sum.Total, sum.Mapped, sum.Failed)
		return nil
	}

	if err := run(ctx); err != nil {
		return err
	}
	if !cmd.Bool("watch") {
		return nil
	}
	return a.watch(ctx, defPath, reg, run)
}

// watch re-runs the batch whenever the mapping file changes. Mappings are
// reloaded with Replace semantics so redefinition between runs is explicit.
func (a *app) watch(ctx context.Context, defPath string, reg *registry.Registry, run func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(defPath); err != nil {
		return fmt.Errorf("watching %s: %w", defPath, err)
	}

	log := logctx.From(ctx)
	log.LogAttrs(ctx, slog.LevelInfo, "watching mapping file", slog.String("path", defPath))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", defPath, err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			if _, err := mapdef.Reload(defPath, reg); err != nil {
				log.LogAttrs(ctx, slog.LevelError, "reload failed",
					slog.String("path", defPath), slog.String("error", err.Error()))
				continue
			}
			if err := run(ctx); err != nil {
				log.LogAttrs(ctx, slog.LevelError, "run failed",
					slog.String("path", defPath), slog.String("error", err.Error()))
			}
		}
	}
}

// selectMapping picks the mapping to run: the explicit name when given,
// else the file's only mapping.
func selectMapping(name string, mappings []*mapping.Mapping) (string, error) {
	if name != "" {
		return name, nil
	}
	if len(mappings) == 1 {
		return mappings[0].Name(), nil
	}
	return "", errAmbiguousMapping
}

// selectDisplay resolves the --progress flag: auto picks TUI on a terminal,
// plain otherwise.
func (a *app) selectDisplay(mode string, boring bool, total int) (progress.Display, error) {
	switch mode {
	case "auto":
		if a.isTTY {
			return &progress.TUI{Total: total, Boring: boring}, nil
		}
		return &progress.Plain{}, nil
	case "tui":
		return &progress.TUI{Total: total, Boring: boring}, nil
	case "plain":
		return &progress.Plain{}, nil
	case "quiet":
		return &progress.Quiet{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownProgress, mode)
	}
}

// openOut opens the output destination; "-" selects stdout.
func (a *app) openOut(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return a.stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

// readRecordsFile reads an NDJSON record stream from a file, or stdin when
// the path is "-".
func readRecordsFile(path string) (records []harvest.Record, err error) {
	if path == "-" {
		return harvest.ReadNDJSON(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	return harvest.ReadNDJSON(f)
}
