package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v3"

	"github.com/magpierre/measureset/catalog"
	"github.com/magpierre/measureset/dataset"
	"github.com/magpierre/measureset/internal/config"
	"github.com/magpierre/measureset/internal/logging"
	"github.com/magpierre/measureset/readers"
)

// app holds what the commands share once the root Before hook ran.
type app struct {
	out    io.Writer
	cfg    *config.Config
	logger *logging.Logger
}

func newApp(out io.Writer) *app {
	return &app{out: out}
}

// Command returns the root command.
func (a *app) Command() *cli.Command {
	return &cli.Command{
		Name:  "measureset",
		Usage: "Catalogue measurement files and extract grouped data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error; overrides the configuration",
			},
		},
		Before: a.before,
		After:  a.after,
		Commands: []*cli.Command{
			a.generateCommand(),
			a.summarizeCommand(),
			a.groupsCommand(),
			a.extractCommand(),
			a.archiveCommand(),
			a.importSharedCommand(),
		},
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.Logging.Level = level
		if err := cfg.Validate(); err != nil {
			return ctx, err
		}
	}
	logger, err := logging.Setup(cfg.Logging)
	if err != nil {
		return ctx, err
	}
	a.cfg, a.logger = cfg, logger
	return ctx, nil
}

func (a *app) after(context.Context, *cli.Command) error {
	if a.logger == nil {
		return nil
	}
	return a.logger.Close()
}

// readerOptions applies the configured separator and, when an object
// store is configured, reads s3:// paths from it.
func (a *app) readerOptions() ([]readers.Option, error) {
	var opts []readers.Option
	if sep := a.cfg.Catalog.Separator; sep != "" {
		opts = append(opts, readers.WithComma([]rune(sep)[0]))
	}
	if oc := a.cfg.ObjectStore; oc.Enabled() {
		store, err := readers.NewObjectStore(readers.ObjectStoreConfig{
			Endpoint:        oc.Endpoint,
			AccessKeyID:     oc.AccessKeyID,
			SecretAccessKey: oc.SecretAccessKey,
			Region:          oc.Region,
			UseSSL:          oc.UseSSL,
		}, readers.LocalFiles)
		if err != nil {
			return nil, err
		}
		opts = append(opts, readers.WithOpener(store))
	}
	return opts, nil
}

// reader looks up a registered reader, defaulting to the configured one.
func (a *app) reader(name string) (dataset.Reader, error) {
	if name == "" {
		name = a.cfg.Catalog.Reader
	}
	opts, err := a.readerOptions()
	if err != nil {
		return nil, err
	}
	return readers.Lookup(name, opts...)
}

// open loads the catalogue at path: an archive file or a catalogued
// directory. An archive keeps the reader it names unless readerName is
// given.
func (a *app) open(ctx context.Context, path, readerName string) (*dataset.Dataset, error) {
	if strings.EqualFold(filepath.Ext(path), catalog.ArchiveExt) {
		opts, err := a.readerOptions()
		if err != nil {
			return nil, err
		}
		archiveOpts := catalog.ArchiveOptions{ReaderOptions: opts}
		if readerName != "" {
			if archiveOpts.Reader, err = a.reader(readerName); err != nil {
				return nil, err
			}
		}
		return catalog.ReadArchive(ctx, path, archiveOpts)
	}

	reader, err := a.reader(readerName)
	if err != nil {
		return nil, err
	}
	res, err := catalog.Load(ctx, path, catalog.LoadOptions{
		FileName:      a.cfg.Catalog.MetadataFile,
		PointerColumn: a.cfg.Catalog.PointerColumn,
		Reader:        reader,
	})
	if err != nil {
		return nil, err
	}
	a.report(res.Diagnostics)
	return res.Dataset, nil
}

// report logs non-fatal diagnostics.
func (a *app) report(diag *multierror.Error) {
	if diag == nil {
		return
	}
	for _, err := range diag.Errors {
		a.logger.Warn("diagnostic", "error", err)
	}
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

// splitList accepts both repeated flags and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
