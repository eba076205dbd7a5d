package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/sobjornstad/rabbitmark/internal/catalog"
	"github.com/sobjornstad/rabbitmark/internal/interchange"
	"github.com/sobjornstad/rabbitmark/internal/linkcheck"
	"github.com/sobjornstad/rabbitmark/internal/model"
	"github.com/sobjornstad/rabbitmark/internal/picker"
	"github.com/sobjornstad/rabbitmark/internal/pocket"
	"github.com/sobjornstad/rabbitmark/internal/readwise"
	"github.com/sobjornstad/rabbitmark/internal/search"
	"github.com/sobjornstad/rabbitmark/internal/storage"
	"github.com/sobjornstad/rabbitmark/internal/tui"
	"github.com/sobjornstad/rabbitmark/internal/wayback"
)

func main() {
	app := &cli.App{
		Name:  "rabbitmark",
		Usage: "A bookmark catalog for people with a lot of bookmarks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "Path to the catalog database",
			},
		},
		Commands: []*cli.Command{
			findCommand(),
			addCommand(),
			rmCommand(),
			goCommand(),
			copyCommand(),
			searchCommand(),
			tagsCommand(),
			tagCommand(),
			checkCommand(),
			waybackCommand(),
			exportCommand(),
			importCommand(),
			pocketCommand(),
			readwiseCommand(),
			configCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openCatalog opens the database named by the --db flag, or the default
// location. The caller must Close the returned DB.
func openCatalog(c *cli.Context) (*storage.DB, *catalog.Catalog, error) {
	path := c.String("db")
	if path == "" {
		var err error
		path, err = storage.DefaultPath()
		if err != nil {
			return nil, nil, err
		}
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog at %s: %w", path, err)
	}
	return db, catalog.New(db), nil
}

// shortID is the ID prefix shown in listings, long enough to be
// unambiguous in any personal-sized catalog.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	}
	if cmd != nil {
		_ = cmd.Start()
	}
}

func findCommand() *cli.Command {
	return &cli.Command{
		Name:  "find",
		Usage: "List bookmarks matching a search query",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "Substring to match against name, URL, or description",
			},
			&cli.StringSliceFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "Include bookmarks with this tag; repeatable. Use \"" +
					model.NoTags + "\" for untagged bookmarks",
			},
			&cli.BoolFlag{
				Name:    "and",
				Aliases: []string{"a"},
				Usage:   "Rather than ORing together tags, AND them together",
			},
			&cli.BoolFlag{
				Name:    "private",
				Aliases: []string{"p"},
				Usage:   "Include private bookmarks",
			},
		},
		Action: func(c *cli.Context) error {
			db, cat, err := openCatalog(c)
			if err != nil {
				return err
			}
			defer db.Close()

			mode := model.SearchOr
			if c.Bool("and") {
				mode = model.SearchAnd
			}

			marks, err := cat.FindBookmarks(
				c.String("filter"), c.StringSlice("tag"), c.Bool("private"), mode)
			if err != nil {
				return err
			}

			sort.Slice(marks, func(i, j int) bool {
				return marks[i].Name < marks[j].Name
			})

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTAGS")
			for _, m := range marks {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					shortID(m.ID), m.Name, strings.Join(m.Tags, ", "))
			}
			return w.Flush()
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a new bookmark",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}},
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Required: true},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
			&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}},
		},
		Action: func(c *cli.Context) error {
			db, cat, err := openCatalog(c)
			if err != nil {
				return err
			}
			defer db.Close()

			mark, err := cat.AddBookmark(model.NewBookmarkParams{
				Name:        c.String("name"),
				URL:         c.String("url"),
				Description: c.String("description"),
				Tags:        c.StringSlice("tag"),
			})
			if err != nil {
				return err
			}
			fmt.Printf("Added %q (%s)\n", mark.Name, shortID(mark.ID))
			return nil
		},
	}
}

func rmCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a bookmark by ID",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: rabbitmark rm <id>")
			}
			db, cat, err := openCatalog(c)
			if err != nil {
				return err
			}
			defer db.Close()

			mark, err := cat.ResolveIDPrefix(c.Args().First())
			if err != nil {
				return err
			}
			if err := cat.DeleteBookmark(mark.ID); err != nil {
				return err
			}
			fmt.Printf("Deleted %q\n", mark.Name)
			return nil
		},
	}
}

func goCommand() *cli.Command {
	return &cli.Command{
		Name:      "go",
		Usage:     "Browse to the bookmark with a given ID",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: rabbitmark go <id>")
			}
			db, cat, err := openCatalog(c)
			if err != nil {
				return err
			}
			defer db.Close()

			mark, err := cat.ResolveIDPrefix(c.Args().First())
			if err != nil {
				return err
			}
			openURL(mark.URL)
			return nil
		},
	}
}

func copyCommand() *cli.Command {
	return &cli.Command{
		Name:      "copy",
		Usage:     "Copy the URL of the bookmark with a given ID",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: rabbitmark copy <id>")
			}
			db, cat, err := openCatalog(c)
			if err != nil {
				return err
			}
			defer db.Close()

			mark, err := cat.ResolveIDPrefix(c.Args().First())
			if err != nil {
				return err
			}
			if err := clipboard.WriteAll(mark.URL); err != nil {
				return fmt.Errorf("copy to clipboard: %w", err)
			}
			fmt.Printf("URL copied to clipboard: %s\n", mark.URL)
			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Fuzzy-search bookmark names, pick one, and open it",
		ArgsUsage: "<query>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("usage: rabbitmark search <query>")
			}
			query := strings.Join(c.Args().Slice(), " ")

			db, cat, err := openCatalog(c)
			if err != nil {
				return err
			}
			defer db.Close()

			marks, err := cat.FindBookmarks("", nil, true, model.SearchOr)
			if err != nil {
				return err
			}

			results := search.FuzzySearchBookmarks(marks, query)
			if len(results) == 0 {
				fmt.Printf("No bookmarks found for %q\n", query)
				return nil
			}

			var selected *model.Bookmark
			if len(results) == 1 {
				selected = results[0].Bookmark
				fmt.Printf("Opening: %s\n", selected.Name)
			} else {
				p := picker.New(results, query)
				finalModel, err := tea.NewProgram(p).Run()
				if err != nil {
					return fmt.Errorf("run picker: %w", err)
				}
				finalPicker := finalModel.(picker.Picker)
				if finalPicker.Cancelled() {
					return nil
				}
				selected = finalPicker.SelectedBookmark()
			}

			if selected != nil {
				openURL(selected.URL)
			}
			return nil
		},
	}
}

func tagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List all tags with the number of bookmarks carrying each",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "private",
				Aliases: []string{"p"},
				Usage:   "Count private bookmarks too",
			},
		},
		Action: func(c *cli.Context) error {
			db, cat, err := openCatalog(c)
			if err != nil {
				return err
			}
			defer db.Close()

			counts, err := cat.ScanTagsWithCounts(c.Bool("private"))
			if err != nil {
				return err
			}

			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, name := range names {
				fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
			}
			return w.Flush()
		},
	}
}

func tagCommand() *cli.Command {
	return &cli.Command{
		Name:  "tag",
		Usage: "Manage the tag taxonomy",
		Subcommands: []*cli.Command{
			{
				Name:      "rename",
				Usage:     "Rename a tag, keeping its bookmarks",
				ArgsUsage: "<old> <new>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("usage: rabbitmark tag rename <old> <new>")
					}
					db, cat, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer db.Close()

					renamed, err := cat.RenameTag(c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					if !renamed {
						return fmt.Errorf("a tag named %q already exists; "+
							"did you mean 'tag merge'?", c.Args().Get(1))
					}
					fmt.Printf("Renamed tag %q to %q\n", c.Args().Get(0), c.Args().Get(1))
					return nil
				},
			},
			{
				Name:      "merge",
				Usage:     "Move every bookmark from one tag onto another",
				ArgsUsage: "<from> <into>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("usage: rabbitmark tag merge <from> <into>")
					}
					db, cat, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer db.Close()

					merged, err := cat.MergeTags(c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					if !merged {
						return fmt.Errorf("nothing to merge")
					}
					fmt.Printf("Merged tag %q into %q\n", c.Args().Get(0), c.Args().Get(1))
					return nil
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete a tag from every bookmark carrying it",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("usage: rabbitmark tag rm <name>")
					}
					db, cat, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer db.Close()

					if err := cat.DeleteTag(c.Args().First()); err != nil {
						return err
					}
					fmt.Printf("Deleted tag %q\n", c.Args().First())
					return nil
				},
			},
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Check all bookmark URLs for link rot",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "only-failures",
				Usage: "Report only URLs that failed the check",
			},
		},
		Action: func(c *cli.Context) error {
			db, cat, err := openCatalog(c)
			if err != nil {
				return err
			}
			defer db.Close()

			marks, err := cat.LinkCandidates()
			if err != nil {
				return err
			}
			if len(marks) == 0 {
				fmt.Println("No bookmarks to check.")
				return nil
			}

			candidates := make([]linkcheck.Candidate, len(marks))
			for i, m := range marks {
				candidates[i] = linkcheck.Candidate{ID: m.ID, Name: m.Name, URL: m.URL}
			}

			failures := 0
			scanner := linkcheck.NewScanner()
			err = scanner.Scan(c.Context, candidates,
				func(completed, total int, result linkcheck.Result) {
					if !result.Successful() {
						failures++
					}
					fmt.Printf("[%d/%d] %s\n", completed, total, result)
				}, c.Bool("only-failures"))
			if err != nil {
				return err
			}

			fmt.Printf("Checked %d bookmarks; %d failed.\n", len(candidates), failures)
			return nil
		},
	}
}

func waybackCommand() *cli.Command {
	return &cli.Command{
		Name:      "wayback",
		Usage:     "Bisect a page's Wayback Machine history to pick a snapshot",
		ArgsUsage: "<id or url>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: rabbitmark wayback <id or url>")
			}
			arg := c.Args().First()

			pageURL := arg
			if !strings.Contains(arg, "://") {
				db, cat, err := openCatalog(c)
				if err != nil {
					return err
				}
				mark, err := cat.ResolveIDPrefix(arg)
				db.Close()
				if err != nil {
					return err
				}
				pageURL = mark.URL
			}

			p := tui.NewWaybackPicker(wayback.NewClient(), pageURL, openURL)
			finalModel, err := tea.NewProgram(p).Run()
			if err != nil {
				return fmt.Errorf("run snapshot picker: %w", err)
			}

			finalPicker := finalModel.(tui.WaybackPicker)
			if err := finalPicker.Err(); err != nil {
				return err
			}
			if snap := finalPicker.Chosen(); snap != nil {
				fmt.Println(snap.ArchivedURL())
				if err := clipboard.WriteAll(snap.ArchivedURL()); err == nil {
					fmt.Println("(copied to clipboard)")
				}
			}
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export all bookmarks to a CSV file",
		ArgsUsage: "<file.csv>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: rabbitmark export <file.csv>")
			}
			db, cat, err := openCatalog(c)
			if err != nil {
				return err
			}
			defer db.Close()

			f, err := os.Create(c.Args().First())
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := interchange.ExportCSV(cat, f)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d bookmarks.\n", n)
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import bookmarks from a CSV or Netscape HTML file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "map",
				Usage: "Comma-separated roles for each CSV column " +
					"(name, url, description, tags, or blank to skip)",
				Value: "name,url,description,tags",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: rabbitmark import <file>")
			}
			path := c.Args().First()

			db, cat, err := openCatalog(c)
			if err != nil {
				return err
			}
			defer db.Close()

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			var imported, dupes int
			if strings.HasSuffix(strings.ToLower(path), ".html") ||
				strings.HasSuffix(strings.ToLower(path), ".htm") {
				imported, dupes, err = interchange.ImportHTML(cat, f)
			} else {
				mapping := strings.Split(c.String("map"), ",")
				for i := range mapping {
					mapping[i] = strings.TrimSpace(mapping[i])
				}
				imported, dupes, err = interchange.ImportCSV(cat, f, mapping)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d bookmarks", imported)
			if dupes > 0 {
				fmt.Printf(" (%d duplicates skipped)", dupes)
			}
			fmt.Println()
			return nil
		},
	}
}

func pocketCommand() *cli.Command {
	return &cli.Command{
		Name:  "pocket",
		Usage: "Work with the Pocket read-it-later service",
		Subcommands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Import reading-list items from Pocket as bookmarks",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "only-tag", Usage: "Only items with this Pocket tag"},
					&cli.BoolFlag{Name: "favorites", Usage: "Only favorited items"},
					&cli.BoolFlag{Name: "all", Usage: "Ignore the saved sync point"},
					&cli.BoolFlag{Name: "excerpt", Usage: "Use Pocket's excerpt as the description"},
					&cli.StringFlag{Name: "tag-with", Usage: "Tag every imported bookmark with this"},
					&cli.BoolFlag{Name: "passthru", Usage: "Carry Pocket tags over"},
					&cli.StringFlag{Name: "discard-tags", Usage: "Pocket tags to drop during passthru"},
				},
				Action: func(c *cli.Context) error {
					db, cat, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer db.Close()

					client, err := pocket.NewClient(cat)
					if err != nil {
						return err
					}

					articles, err := client.SyncItems(context.Background(), cat,
						pocket.SyncOptions{
							OnlyTag:       c.String("only-tag"),
							OnlyFavorites: c.Bool("favorites"),
							OnlySince:     !c.Bool("all"),
							UseExcerpt:    c.Bool("excerpt"),
							TagWith:       c.String("tag-with"),
							TagPassthru:   c.Bool("passthru"),
							DiscardTags:   c.String("discard-tags"),
						})
					if err != nil {
						return err
					}

					imported, dupes := 0, 0
					for _, a := range articles {
						exists, err := cat.URLExists(a.URL)
						if err != nil {
							return err
						}
						if exists {
							dupes++
							continue
						}
						if _, err := cat.AddBookmark(model.NewBookmarkParams{
							Name:        a.Name,
							URL:         a.URL,
							Description: a.Description,
							Tags:        a.Tags,
						}); err != nil {
							return err
						}
						imported++
					}

					fmt.Printf("Imported %d items from Pocket", imported)
					if dupes > 0 {
						fmt.Printf(" (%d already present)", dupes)
					}
					fmt.Println()
					return nil
				},
			},
		},
	}
}

func readwiseCommand() *cli.Command {
	return &cli.Command{
		Name:      "readwise",
		Usage:     "Save a bookmark to Readwise Reader",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: rabbitmark readwise <id>")
			}
			db, cat, err := openCatalog(c)
			if err != nil {
				return err
			}
			defer db.Close()

			token, ok, err := cat.ConfigGet(readwise.TokenConfigKey)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("set your token first: rabbitmark config set %s <token>",
					readwise.TokenConfigKey)
			}

			mark, err := cat.ResolveIDPrefix(c.Args().First())
			if err != nil {
				return err
			}

			client := readwise.NewClient(token)
			if err := client.SaveToReader(context.Background(),
				mark.URL, mark.Name, mark.Description, mark.Tags); err != nil {
				return err
			}
			fmt.Printf("Saved %q to Readwise Reader\n", mark.Name)
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Read and write catalog configuration keys",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				ArgsUsage: "<key>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("usage: rabbitmark config get <key>")
					}
					db, cat, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer db.Close()

					value, ok, err := cat.ConfigGet(c.Args().First())
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("no config key %q", c.Args().First())
					}
					fmt.Println(value)
					return nil
				},
			},
			{
				Name:      "set",
				ArgsUsage: "<key> <value>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("usage: rabbitmark config set <key> <value>")
					}
					db, cat, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer db.Close()

					return cat.ConfigPut(c.Args().Get(0), c.Args().Get(1))
				},
			},
		},
	}
}
