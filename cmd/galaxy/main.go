package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/kittclouds/galaxy/internal"
	pkgconfig "github.com/kittclouds/galaxy/pkg/config"
	"github.com/kittclouds/galaxy/pkg/knowledge"
)

// withApp opens the workspace for the duration of fn.
func withApp(ctx context.Context, cmd *cli.Command, fn func(app *internal.App) error) error {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	app, err := internal.Open(ctx, internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	defer app.Close()

	return fn(app)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.Args().First()
	if v == "" {
		return "", fmt.Errorf("missing %s argument", name)
	}
	return v, nil
}

func vectorFlag(cmd *cli.Command) ([]float32, error) {
	raw := cmd.FloatSlice("vec")
	if len(raw) == 0 {
		return nil, errors.New("--vec is required")
	}
	out := make([]float32, len(raw))
	for i, f := range raw {
		out[i] = float32(f)
	}
	return out, nil
}

// noteQuery builds a command printing a per-note graph query.
func noteQuery(name, usage string, query func(g *knowledge.Graph, id string) any) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			return withApp(ctx, cmd, func(app *internal.App) error {
				return printJSON(query(app.Graph(), id))
			})
		},
	}
}

func importCmd(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return errors.New("missing workspace file argument")
	}
	return withApp(ctx, cmd, func(app *internal.App) error {
		for _, f := range files {
			if _, err := app.ImportFile(ctx, f); err != nil {
				return err
			}
		}
		report, err := app.Rebuild()
		if err != nil {
			return err
		}
		return printJSON(report)
	})
}

func exportCmd(ctx context.Context, cmd *cli.Command) error {
	return withApp(ctx, cmd, func(app *internal.App) error {
		out := cmd.String("out")
		if out == "" {
			return app.Export(os.Stdout)
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := app.Export(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

func watchCmd(ctx context.Context, cmd *cli.Command) error {
	return withApp(ctx, cmd, func(app *internal.App) error {
		dir := cmd.Args().First()
		if dir == "" {
			dir = app.Config().Watch.Dir
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create watch dir: %w", err)
		}

		g, gCtx := errgroup.WithContext(ctx)
		watchCtx, stop := context.WithCancel(gCtx)
		defer stop()

		g.Go(func() error {
			return app.Watch(watchCtx, dir, func(files []string, report knowledge.Report) {
				slog.Info("graph updated",
					slog.Any("files", files),
					slog.Int("notes", report.Notes),
					slog.Int("links", report.Links),
					slog.Int("unresolved", len(report.Unresolved)))
			})
		})

		g.Go(func() error {
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case sig := <-quit:
				slog.Info("Received shutdown signal", slog.String("signal", sig.String()))
			case <-gCtx.Done():
			}
			stop()
			return nil
		})

		return g.Wait()
	})
}

func vectorCommands() *cli.Command {
	vecFlag := func() cli.Flag {
		return &cli.FloatSliceFlag{Name: "vec", Usage: "embedding components, comma separated"}
	}

	return &cli.Command{
		Name:  "vector",
		Usage: "Manage the note similarity index",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Store the embedding of a note",
				ArgsUsage: "<note-id>",
				Flags:     []cli.Flag{vecFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireArg(cmd, "note-id")
					if err != nil {
						return err
					}
					vec, err := vectorFlag(cmd)
					if err != nil {
						return err
					}
					return withApp(ctx, cmd, func(app *internal.App) error {
						return app.Embed(ctx, id, vec)
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "Drop the embedding of a note",
				ArgsUsage: "<note-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireArg(cmd, "note-id")
					if err != nil {
						return err
					}
					return withApp(ctx, cmd, func(app *internal.App) error {
						removed, err := app.Forget(ctx, id)
						if err != nil {
							return err
						}
						return printJSON(map[string]bool{"removed": removed})
					})
				},
			},
			{
				Name:  "search",
				Usage: "Find the notes closest to an embedding",
				Flags: []cli.Flag{
					vecFlag(),
					&cli.IntFlag{Name: "k", Usage: "number of results", Value: 10},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					vec, err := vectorFlag(cmd)
					if err != nil {
						return err
					}
					return withApp(ctx, cmd, func(app *internal.App) error {
						hits, err := app.Similar(ctx, vec, int(cmd.Int("k")))
						if err != nil {
							return err
						}
						return printJSON(hits)
					})
				},
			},
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "galaxy",
		Usage: "Knowledge graph and similarity index over a Galaxy Notes workspace",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("GALAXY_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import workspace files into the store and rebuild the graph",
				ArgsUsage: "<file>...",
				Action:    importCmd,
			},
			{
				Name:  "rebuild",
				Usage: "Rebuild the graph from the store and print the report",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, cmd, func(app *internal.App) error {
						return printJSON(app.LastReport())
					})
				},
			},
			noteQuery("links", "Notes a note links to", func(g *knowledge.Graph, id string) any {
				return g.OutgoingLinks(id)
			}),
			noteQuery("backlinks", "Notes linking to a note", func(g *knowledge.Graph, id string) any {
				return g.IncomingLinks(id)
			}),
			noteQuery("folder", "Direct children of a folder", func(g *knowledge.Graph, id string) any {
				return g.FolderContents(id)
			}),
			noteQuery("connections", "Tags, concepts and mentions of a note", func(g *knowledge.Graph, id string) any {
				return g.Connections(id)
			}),
			noteQuery("triples", "Statements asserted by a note", func(g *knowledge.Graph, id string) any {
				return g.Triples(id)
			}),
			noteQuery("unlinked", "Titles mentioned in a note without a link", func(g *knowledge.Graph, id string) any {
				return g.UnlinkedMentions(id)
			}),
			noteQuery("tagged", "Notes carrying a tag", func(g *knowledge.Graph, tag string) any {
				return g.NotesWithTag(tag)
			}),
			{
				Name:      "resolve",
				Usage:     "Resolve a note title to its id",
				ArgsUsage: "<title>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					title, err := requireArg(cmd, "title")
					if err != nil {
						return err
					}
					return withApp(ctx, cmd, func(app *internal.App) error {
						id, ok := app.Graph().ResolveTitle(title)
						if !ok {
							return fmt.Errorf("no note titled %q", title)
						}
						return printJSON(map[string]string{"id": id})
					})
				},
			},
			{
				Name:  "stats",
				Usage: "Print graph statistics and the most connected nodes",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "top", Usage: "number of central nodes", Value: 10},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, cmd, func(app *internal.App) error {
						return printJSON(map[string]any{
							"stats":   app.Graph().Stats(),
							"central": app.Graph().Central(int(cmd.Int("top"))),
						})
					})
				},
			},
			{
				Name:   "export",
				Usage:  "Write the graph as JSON",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file, stdout when empty"}},
				Action: exportCmd,
			},
			{
				Name:      "delete",
				Usage:     "Delete a note and its embedding",
				ArgsUsage: "<note-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireArg(cmd, "note-id")
					if err != nil {
						return err
					}
					return withApp(ctx, cmd, func(app *internal.App) error {
						return app.DeleteNote(ctx, id)
					})
				},
			},
			{
				Name:      "watch",
				Usage:     "Import workspace files as they change",
				ArgsUsage: "[dir]",
				Action:    watchCmd,
			},
			vectorCommands(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
