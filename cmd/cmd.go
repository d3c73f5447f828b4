// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/server"
	"github.com/desertthunder/marquee/internal/wizard"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

// queryFlags select what part of the catalog a command reads.
func queryFlags() []cli.Flag {
	kinds := make([]string, len(models.Kinds))
	for i, k := range models.Kinds {
		kinds[i] = string(k)
	}
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "kind",
			Aliases: []string{"k"},
			Usage:   "Catalog section (" + strings.Join(kinds, ", ") + ")",
			Value:   string(models.KindSounds),
		},
		&cli.StringFlag{
			Name:    "search",
			Aliases: []string{"q"},
			Usage:   "Search term",
		},
		&cli.StringSliceFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "Filter as key=value (repeatable)",
		},
		&cli.StringFlag{
			Name:  "sort",
			Usage: "Sort order, e.g. newest or -price",
		},
		&cli.IntFlag{
			Name:  "per-page",
			Usage: "Items per page",
			Value: models.DefaultPerPage,
		},
	}
}

// formFlags are shared by every wizard-backed command.
func formFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "form",
			Usage: "YAML or JSON file with field values",
		},
		&cli.StringSliceFlag{
			Name:    "set",
			Aliases: []string{"s"},
			Usage:   "Field value as key=value; dotted keys address groups and lists (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "file",
			Usage: "File field as field=path (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Validate and preview the payload without submitting",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output the result as JSON",
		},
	}
}

func formCommand(r *Runner, name, usage, flow string, aliases ...string) *cli.Command {
	return &cli.Command{
		Name:    name,
		Aliases: aliases,
		Usage:   usage,
		Flags:   formFlags(),
		Action:  r.formAction(flow),
	}
}

// setupCommand handles setup operations for config and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml from the built-in template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in through the browser and store the bearer token",
				Flags: []cli.Flag{
					configFlag(),
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: server.DefaultLoginTimeout,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening it",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "token",
				Usage: "Store a bearer token directly or from a copied cURL command",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "token",
						Usage: "Bearer token",
					},
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
				},
				Action: r.AuthToken,
			},
			{
				Name:   "status",
				Usage:  "Show the account the stored token belongs to",
				Flags:  outputFlags(),
				Action: r.AuthStatus,
			},
		},
	}
}

// catalogCommand handles catalog reads
func catalogCommand(r *Runner) *cli.Command {
	browseFlags := append(queryFlags(),
		&cli.IntFlag{
			Name:    "page",
			Aliases: []string{"p"},
			Usage:   "Page number",
			Value:   1,
		},
	)
	exportFlags := append(queryFlags(),
		&cli.StringFlag{
			Name:  "format",
			Usage: "Export format (json, csv, markdown, txt)",
			Value: "json",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory (default: marquee_export_{epoch})",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent page fetchers",
			Value: 4,
		},
		&cli.FloatFlag{
			Name:  "rate",
			Usage: "Requests per second",
			Value: 5,
		},
		&cli.IntFlag{
			Name:  "max-pages",
			Usage: "Stop after this many pages (0 fetches all)",
		},
	)

	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Browse and export the marketplace catalog",
		Commands: []*cli.Command{
			{
				Name:   "browse",
				Usage:  "Show one page of the catalog",
				Flags:  append(browseFlags, outputFlags()...),
				Action: r.CatalogBrowse,
			},
			{
				Name:  "show",
				Usage: "Show a single catalog item",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "kind"},
					&cli.StringArg{Name: "id"},
				},
				Flags:  outputFlags(),
				Action: r.CatalogShow,
			},
			{
				Name:   "export",
				Usage:  "Fetch every page of a query and write it to a file",
				Flags:  exportFlags,
				Action: r.CatalogExport,
			},
		},
	}
}

// cacheCommand inspects the local catalog cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the local catalog cache",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached catalog items",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "kind",
						Aliases: []string{"k"},
						Usage:   "Only this catalog section",
					},
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"q"},
						Usage:   "Title contains",
					},
				}, outputFlags()...),
				Action: r.CacheList,
			},
			{
				Name:  "clear",
				Usage: "Remove cached catalog items",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "kind",
						Aliases: []string{"k"},
						Usage:   "Only this catalog section",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}

// uploadCommand publishes sounds and clips
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Publish media to the marketplace",
		Commands: []*cli.Command{
			formCommand(r, "sound", "Upload a sound with its audio file", wizard.FlowSoundUpload),
			formCommand(r, "clip", "Upload a video clip with its thumbnail", wizard.FlowClipUpload, "video"),
		},
	}
}

func competitionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "competition",
		Usage: "Run competitions",
		Commands: []*cli.Command{
			formCommand(r, "create", "Create a competition with rounds, criteria and prizes", wizard.FlowCompetitionCreate),
		},
	}
}

func ticketsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tickets",
		Aliases: []string{"ticket"},
		Usage:   "Buy event tickets",
		Commands: []*cli.Command{
			formCommand(r, "checkout", "Check out tickets for an event", wizard.FlowTicketCheckout, "buy"),
		},
	}
}

func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Manage your artist profile",
		Commands: []*cli.Command{
			formCommand(r, "update", "Update your artist profile", wizard.FlowArtistProfile),
		},
	}
}

// historyCommand reads the local submission ledger
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recorded submissions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List submit attempts, newest first",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "form",
						Usage: "Only this form (" + strings.Join(wizard.FlowKinds(), ", ") + ")",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only this status (pending, succeeded, failed)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries",
						Value: 20,
					},
				}, outputFlags()...),
				Action: r.HistoryList,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct authenticated API calls",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints the response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for browsing and playback.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive catalog browser and player",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the TUI owns the terminal",
				Value: "./tmp/marquee-tui.log",
			},
		},
		Action: r.TUI,
	}
}
