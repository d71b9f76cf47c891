package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/devlens/pkg/diffparse"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func diffstatCommand() *cli.Command {
	var format string

	return &cli.Command{
		Name:      "diffstat",
		Aliases:   []string{"d"},
		Usage:     "Print per-file change statistics of a unified diff",
		ArgsUsage: "[diff file, stdin if omitted]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "Output format [text|json]",
				Value:       "text",
				Sources:     cli.EnvVars("DEVLENS_DIFFSTAT_FORMAT"),
				Destination: &format,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			var r io.Reader = os.Stdin
			if path := c.Args().First(); path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return goerr.Wrap(err, "failed to open diff file", goerr.V("path", path))
				}
				defer safe.Close(f)
				r = f
			}

			return runDiffstat(r, c.Root().Writer, format)
		},
	}
}

func runDiffstat(r io.Reader, w io.Writer, format string) error {
	if w == nil {
		w = os.Stdout
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return goerr.Wrap(err, "failed to read diff")
	}

	stats, err := diffparse.ParsePullRequestStats(string(raw))
	if err != nil {
		return err
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			return goerr.Wrap(err, "failed to encode diff stats")
		}
		return nil

	case "text":
		writeDiffstatText(w, stats)
		return nil
	}

	return goerr.Wrap(types.ErrInvalidOption, "unknown format", goerr.V("format", format))
}

func writeDiffstatText(w io.Writer, stats *model.PullRequestStats) {
	added := color.New(color.FgGreen).SprintfFunc()
	deleted := color.New(color.FgRed).SprintfFunc()

	for _, fc := range stats.FilesChanged {
		name := fc.Path
		if fc.OldPath != "" {
			name = fc.OldPath + " => " + fc.Path
		}
		if fc.Binary {
			fmt.Fprintf(w, "%-9s %s (binary)\n", fc.ChangeType, name)
			continue
		}
		fmt.Fprintf(w, "%-9s %s %s %s\n", fc.ChangeType, added("+%d", fc.LinesAdded), deleted("-%d", fc.LinesDeleted), name)
	}

	fmt.Fprintf(w, "%d files changed, %s, %s", len(stats.FilesChanged), added("%d insertions(+)", stats.TotalAdditions), deleted("%d deletions(-)", stats.TotalDeletions))
	if stats.MergeCommit {
		fmt.Fprint(w, ", merge commit")
	}
	if stats.SkippedSections > 0 {
		fmt.Fprintf(w, ", %d sections skipped", stats.SkippedSections)
	}
	fmt.Fprintln(w)
}
