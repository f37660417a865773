// polyscan is the diagnostic CLI over the analysis engine: it only
// invokes the inbound API and prints results.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/polyscan/internal/config"
	"github.com/standardbeagle/polyscan/internal/debug"
	"github.com/standardbeagle/polyscan/internal/engine"
	"github.com/standardbeagle/polyscan/internal/logging"
	"github.com/standardbeagle/polyscan/internal/metrics"
	"github.com/standardbeagle/polyscan/internal/pattern"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "polyscan",
		Usage:   "polyglot source analysis engine diagnostics",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Value: ".", Usage: "project root (config discovery)"},
			&cli.BoolFlag{Name: "quiet", Usage: "suppress trace output"},
			&cli.StringFlag{Name: "trace", Usage: "pipeline stages to trace on stderr (classify,parse,match,extract,learn,config or all)"},
		},
		Commands: []*cli.Command{
			classifyCommand(),
			parseCommand(),
			matchCommand(),
			featuresCommand(),
			blocksCommand(),
			languagesCommand(),
			learnCommand(),
			metricsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "polyscan: %v\n", err)
		os.Exit(1)
	}
}

// newEngine builds an engine from the CLI's global flags.
func newEngine(c *cli.Context) (*engine.Engine, error) {
	if c.Bool("quiet") {
		debug.SetQuiet(true)
	}
	if spec := c.String("trace"); spec != "" {
		debug.EnableStages(spec)
		debug.SetOutput(os.Stderr)
	}

	cfg, err := config.Load(c.String("root"))
	if err != nil {
		return nil, err
	}
	log, err := logging.NewProduction()
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, engine.WithLogger(log)), nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func readArgFile(c *cli.Context) (string, []byte, error) {
	path := c.Args().First()
	if path == "" {
		return "", nil, fmt.Errorf("expected a file argument")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	return path, content, nil
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "classify a file's language and parser kind",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			eng, err := newEngine(c)
			if err != nil {
				return err
			}
			defer eng.Cleanup()
			path, content, err := readArgFile(c)
			if err != nil {
				return err
			}
			return printJSON(eng.Classify(path, content))
		},
	}
}

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "parse a file and report diagnostics",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			eng, err := newEngine(c)
			if err != nil {
				return err
			}
			defer eng.Cleanup()
			path, content, err := readArgFile(c)
			if err != nil {
				return err
			}
			cls := eng.Classify(path, content)
			result, err := eng.Parse(c.Context, cls, content)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"language":   cls.LanguageID,
				"parser":     cls.ParserKind.String(),
				"success":    result.Success,
				"has_errors": result.Tree != nil && result.Tree.HasError(),
				"errors":     result.Errors,
			})
		},
	}
}

func matchCommand() *cli.Command {
	return &cli.Command{
		Name:      "match",
		Usage:     "run a named pattern over a file",
		ArgsUsage: "<pattern> <file>",
		Action: func(c *cli.Context) error {
			eng, err := newEngine(c)
			if err != nil {
				return err
			}
			defer eng.Cleanup()
			if c.Args().Len() < 2 {
				return fmt.Errorf("expected <pattern> <file>")
			}
			patternName := c.Args().Get(0)
			path := c.Args().Get(1)
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			cls := eng.Classify(path, content)
			pctx := pattern.NewContext(cls.LanguageID)
			pctx.FilePath = path
			matches := eng.Match(c.Context, cls.LanguageID, patternName, content, pctx)
			return printJSON(matches)
		},
	}
}

func featuresCommand() *cli.Command {
	return &cli.Command{
		Name:      "features",
		Usage:     "extract features and complexity metrics from a file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "pattern", Usage: "pattern names to merge into the buckets"},
		},
		Action: func(c *cli.Context) error {
			eng, err := newEngine(c)
			if err != nil {
				return err
			}
			defer eng.Cleanup()
			path, content, err := readArgFile(c)
			if err != nil {
				return err
			}
			cls := eng.Classify(path, content)
			result, err := eng.Parse(c.Context, cls, content)
			if err != nil {
				return err
			}
			features := eng.ExtractFeatures(c.Context, result.Tree, content, c.StringSlice("pattern"))
			return printJSON(features)
		},
	}
}

func blocksCommand() *cli.Command {
	return &cli.Command{
		Name:      "blocks",
		Usage:     "extract structural blocks from a file",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			eng, err := newEngine(c)
			if err != nil {
				return err
			}
			defer eng.Cleanup()
			path, content, err := readArgFile(c)
			if err != nil {
				return err
			}
			cls := eng.Classify(path, content)
			result, err := eng.Parse(c.Context, cls, content)
			if err != nil {
				return err
			}
			return printJSON(eng.ExtractBlocks(cls.LanguageID, content, result.Tree))
		},
	}
}

func languagesCommand() *cli.Command {
	return &cli.Command{
		Name:  "languages",
		Usage: "list supported languages and their backends",
		Action: func(c *cli.Context) error {
			eng, err := newEngine(c)
			if err != nil {
				return err
			}
			defer eng.Cleanup()
			return printJSON(eng.ListLanguages())
		},
	}
}

func learnCommand() *cli.Command {
	return &cli.Command{
		Name:      "learn",
		Usage:     "run the cross-project learner for a language",
		ArgsUsage: "<language> [project-dir]",
		Action: func(c *cli.Context) error {
			eng, err := newEngine(c)
			if err != nil {
				return err
			}
			defer eng.Cleanup()
			language := c.Args().First()
			if language == "" {
				return fmt.Errorf("expected a language id")
			}
			projectDir := c.Args().Get(1)
			if projectDir == "" {
				projectDir = c.String("root")
			}
			report, err := eng.LearnProject(context.Background(), language, projectDir)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func metricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "print pattern performance metrics",
		Action: func(c *cli.Context) error {
			eng, err := newEngine(c)
			if err != nil {
				return err
			}
			defer eng.Cleanup()
			stats := eng.PublishMetrics()
			fmt.Print(metrics.Format(stats, eng.Snapshots(), 10))
			return nil
		},
	}
}
