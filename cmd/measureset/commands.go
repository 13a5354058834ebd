package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/magpierre/measureset/catalog"
	"github.com/magpierre/measureset/dataset"
	"github.com/magpierre/measureset/internal/script"
)

func queryFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "query",
		Aliases: []string{"q"},
		Usage:   "filter rows first, e.g. \"sample = 'A' AND voltage >= 2\"",
	}
}

func readerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "reader",
		Usage: "data file reader (csv, parquet, excel, json, auto)",
	}
}

// queried opens the catalogue named by the first argument and applies
// the query flag.
func (a *app) queried(ctx context.Context, cmd *cli.Command) (*dataset.Dataset, error) {
	path := cmd.Args().First()
	if path == "" {
		return nil, errors.New("a catalogue directory or archive is required")
	}
	ds, err := a.open(ctx, path, cmd.String("reader"))
	if err != nil {
		return nil, err
	}
	if q := cmd.String("query"); q != "" {
		return ds.Query(q)
	}
	return ds, nil
}

func (a *app) generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "build the metadata of a directory with a mapper script",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mapper", Aliases: []string{"m"}, Usage: "Go script declaring Map or MapPath"},
			&cli.BoolFlag{Name: "sample-file", Usage: "print the first data file name, to help write a mapper"},
			&cli.BoolFlag{Name: "overwrite", Usage: "replace an existing metadata file"},
			&cli.BoolFlag{Name: "dry-run", Usage: "print the metadata without saving it"},
			readerFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				return errors.New("a directory is required")
			}
			if cmd.Bool("sample-file") {
				name, err := catalog.SampleFileName(dir)
				if err != nil {
					return err
				}
				a.printf("%s\n", name)
				return nil
			}
			if cmd.String("mapper") == "" {
				return errors.New("--mapper is required")
			}
			mapper, err := script.LoadMapper(cmd.String("mapper"))
			if err != nil {
				return err
			}
			reader, err := a.reader(cmd.String("reader"))
			if err != nil {
				return err
			}

			gen := &catalog.Generator{
				Mapper:        mapper,
				PointerColumn: a.cfg.Catalog.PointerColumn,
				MetadataFile:  a.cfg.Catalog.MetadataFile,
				Reader:        reader,
				Logger:        a.logger.Logger,
			}
			res, err := gen.Generate(ctx, dir)
			if err != nil {
				return err
			}
			a.report(res.Diagnostics)

			if cmd.Bool("dry-run") {
				a.printTable(res.Dataset)
				return nil
			}
			path, err := catalog.Save(dir, res.Dataset, catalog.SaveOptions{
				FileName:  a.cfg.Catalog.MetadataFile,
				Overwrite: cmd.Bool("overwrite"),
			})
			if err != nil {
				return err
			}
			a.printf("wrote %d rows to %s\n", res.Dataset.Len(), path)
			return nil
		},
	}
}

func (a *app) summarizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "summarize",
		Usage:     "list the distinct values of every metadata column",
		ArgsUsage: "DIR|ARCHIVE",
		Flags:     []cli.Flag{queryFlag(), readerFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ds, err := a.queried(ctx, cmd)
			if err != nil {
				return err
			}
			summary := ds.Summarize()
			a.printf("%d rows\n", ds.Len())
			for _, col := range sortedKeys(summary) {
				a.printf("%s: %s\n", col, summary[col])
			}
			return nil
		},
	}
}

func (a *app) groupsCommand() *cli.Command {
	return &cli.Command{
		Name:      "groups",
		Usage:     "show how rows group by the given columns",
		ArgsUsage: "DIR|ARCHIVE",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "by", Usage: "grouping columns", Required: true},
			queryFlag(),
			readerFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ds, err := a.queried(ctx, cmd)
			if err != nil {
				return err
			}
			groups, err := ds.GroupBy(splitList(cmd.StringSlice("by"))...)
			if err != nil {
				return err
			}
			for i, g := range groups {
				key := make([]string, len(g.Key))
				for k, v := range g.Key {
					key[k] = v.String()
				}
				a.printf("%d\t(%s)\t%d members\n", i, strings.Join(key, ", "), len(g.Members))
			}
			return nil
		},
	}
}

func (a *app) extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "load grouped data, reduce or transform it and export it",
		ArgsUsage: "DIR|ARCHIVE",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "by", Usage: "grouping columns; defaults to one group per file"},
			&cli.StringSliceFlag{Name: "label", Usage: "definition columns to keep"},
			&cli.BoolFlag{Name: "mean", Usage: "average the members of every group"},
			&cli.StringFlag{Name: "script", Usage: "Go script declaring transforms"},
			&cli.StringSliceFlag{Name: "step", Usage: "transform to apply, in order"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "export file (.csv, .json or .parquet)", Required: true},
			queryFlag(),
			readerFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ds, err := a.queried(ctx, cmd)
			if err != nil {
				return err
			}
			opts := dataset.GetDataOptions{GroupBy: splitList(cmd.StringSlice("by"))}
			if cmd.IsSet("label") {
				opts.LabelBy = splitList(cmd.StringSlice("label"))
			}
			grouped, err := ds.GetData(ctx, opts)
			if err != nil {
				return err
			}

			if names := splitList(cmd.StringSlice("step")); len(names) > 0 {
				if cmd.String("script") == "" {
					return errors.New("--step needs --script")
				}
				s, err := script.Load(cmd.String("script"), script.WithOutput(os.Stderr))
				if err != nil {
					return err
				}
				steps, err := s.Steps(names...)
				if err != nil {
					return err
				}
				if grouped, err = grouped.Apply(steps, true); err != nil {
					return err
				}
			}
			if cmd.Bool("mean") {
				if grouped, err = grouped.Mean(true); err != nil {
					return err
				}
			}

			if err := catalog.ExportGrouped(grouped, cmd.String("output")); err != nil {
				return err
			}
			a.printf("exported %d groups to %s\n", grouped.Len(), cmd.String("output"))
			return nil
		},
	}
}

func (a *app) archiveCommand() *cli.Command {
	return &cli.Command{
		Name:      "archive",
		Usage:     "bundle a catalogue into a single archive file",
		ArgsUsage: "DIR OUTPUT" + catalog.ArchiveExt,
		Flags:     []cli.Flag{queryFlag(), readerFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return errors.New("archive needs a catalogue and an output file")
			}
			ds, err := a.queried(ctx, cmd)
			if err != nil {
				return err
			}
			out := cmd.Args().Get(1)
			if err := catalog.WriteArchive(out, ds); err != nil {
				return err
			}
			a.printf("archived %d rows to %s\n", ds.Len(), out)
			return nil
		},
	}
}

func (a *app) importSharedCommand() *cli.Command {
	return &cli.Command{
		Name:      "import-shared",
		Usage:     "import metadata from a Delta Sharing table",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "profile", Usage: "Delta Sharing profile file; defaults to the configured one"},
			&cli.BoolFlag{Name: "list", Usage: "list the shared tables and exit"},
			&cli.StringFlag{Name: "share"},
			&cli.StringFlag{Name: "schema"},
			&cli.StringFlag{Name: "table"},
			&cli.StringFlag{Name: "file-id", Usage: "import a single file of the table"},
			&cli.StringSliceFlag{Name: "columns", Usage: "columns to keep"},
			&cli.IntFlag{Name: "limit", Usage: "rows per file, 0 for all"},
			&cli.BoolFlag{Name: "overwrite", Usage: "replace an existing metadata file"},
			queryFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			profilePath := cmd.String("profile")
			if profilePath == "" {
				profilePath = a.cfg.Sharing.ProfilePath
			}
			if profilePath == "" {
				return errors.New("a Delta Sharing profile is required")
			}
			profile, err := os.ReadFile(profilePath)
			if err != nil {
				return fmt.Errorf("failed to read profile: %w", err)
			}
			timeout := a.cfg.Sharing.TimeoutSeconds

			if cmd.Bool("list") {
				tables, err := catalog.ListShared(ctx, string(profile), timeout)
				if err != nil {
					return err
				}
				for _, t := range tables {
					a.printf("%s.%s.%s\n", t.Share, t.Schema, t.Table)
				}
				return nil
			}

			dir := cmd.Args().First()
			if dir == "" {
				return errors.New("a target directory is required")
			}
			src := catalog.SharedSource{
				Profile: string(profile),
				Share:   cmd.String("share"),
				Schema:  cmd.String("schema"),
				Table:   cmd.String("table"),
				FileID:  cmd.String("file-id"),
			}
			if src.Share == "" || src.Schema == "" || src.Table == "" {
				return errors.New("--share, --schema and --table are required")
			}
			table, err := catalog.ImportShared(ctx, src, catalog.SharedOptions{
				Columns:        splitList(cmd.StringSlice("columns")),
				Query:          cmd.String("query"),
				Limit:          int64(cmd.Int("limit")),
				TimeoutSeconds: timeout,
			})
			if err != nil {
				return err
			}

			reader, err := a.reader("")
			if err != nil {
				return err
			}
			ds, err := dataset.New(dataset.SingleDir(dir), table,
				dataset.WithPointerColumn(a.cfg.Catalog.PointerColumn), dataset.WithReader(reader))
			if err != nil {
				return err
			}
			path, err := catalog.Save(dir, ds, catalog.SaveOptions{
				FileName:  a.cfg.Catalog.MetadataFile,
				Overwrite: cmd.Bool("overwrite"),
			})
			if err != nil {
				return err
			}
			a.printf("imported %d rows to %s\n", ds.Len(), path)
			return nil
		},
	}
}

// printTable writes the metadata rows as tab separated text.
func (a *app) printTable(ds *dataset.Dataset) {
	t := ds.Table()
	a.printf("index\t%s\n", strings.Join(t.ColumnNames(), "\t"))
	for row := 0; row < t.RowCount(); row++ {
		idx, _ := t.Index(row)
		values, _ := t.Row(row)
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = v.String()
		}
		a.printf("%d\t%s\n", idx, strings.Join(cells, "\t"))
	}
}
