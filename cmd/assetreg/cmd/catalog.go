package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ssargent/assetreg/pkg/catalog"
)

// withCatalog opens the configured catalog for the duration of fn.
func withCatalog(fn func(*catalog.Catalog) error) error {
	if err := os.MkdirAll(container.Config().CatalogDir, 0750); err != nil {
		return fmt.Errorf("failed to create catalog dir: %w", err)
	}
	cat, err := container.OpenCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()
	return fn(cat)
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Store and browse containers in the local catalog",
		Long: `The catalog keeps validated containers in a local database, compressed and
deduplicated by content digest.

Examples:
  assetreg catalog add AssetRegistry.bin
  assetreg catalog list
  assetreg catalog show 2QFv8nkwJQ9mHrLzcgXFDAJ1Mqp
  assetreg catalog export 2QFv8nkwJQ9mHrLzcgXFDAJ1Mqp out.bin
  assetreg catalog rm 2QFv8nkwJQ9mHrLzcgXFDAJ1Mqp`,
	}
	cmd.AddCommand(newCatalogAddCmd(), newCatalogListCmd(), newCatalogShowCmd(), newCatalogExportCmd(), newCatalogRmCmd())
	return cmd
}

func newCatalogAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <file>...",
		Short: "Decode, validate and store containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name != "" && len(args) > 1 {
				return fmt.Errorf("--name applies to a single file")
			}
			return withCatalog(func(cat *catalog.Catalog) error {
				var entries []catalog.Entry
				for _, path := range args {
					raw, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					entryName := name
					if entryName == "" {
						entryName = filepath.Base(path)
					}
					e, created, err := cat.Put(entryName, raw)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					if !created {
						container.Logger().Info("already stored", "file", path, "id", e.ID)
					}
					entries = append(entries, e)
				}
				return output(cmd.OutOrStdout(), entries, entriesTable(entries))
			})
		},
	}
	cmd.Flags().String("name", "", "Display name (defaults to the file name)")
	return cmd
}

func newCatalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored containers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(func(cat *catalog.Catalog) error {
				entries, err := cat.List()
				if err != nil {
					return err
				}
				return output(cmd.OutOrStdout(), entries, entriesTable(entries))
			})
		},
	}
}

func newCatalogShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored container's entry, names or pairs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			what, _ := cmd.Flags().GetString("section")
			return withCatalog(func(cat *catalog.Catalog) error {
				switch what {
				case "entry":
					e, err := cat.Get(args[0])
					if err != nil {
						return err
					}
					return output(cmd.OutOrStdout(), e, entryTable(e))
				case "names":
					reg, err := cat.Load(args[0])
					if err != nil {
						return err
					}
					rows := reg.Names.Rows()
					return output(cmd.OutOrStdout(), rows, namesTable(rows))
				case "pairs":
					reg, err := cat.Load(args[0])
					if err != nil {
						return err
					}
					pairs, err := reg.ResolvedPairs()
					if err != nil {
						return err
					}
					return output(cmd.OutOrStdout(), pairs, pairsTable(pairs))
				default:
					return fmt.Errorf("unknown section %q (entry, names, pairs)", what)
				}
			})
		},
	}
	cmd.Flags().String("section", "entry", "What to show: entry, names or pairs")
	return cmd
}

func newCatalogExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> <out>",
		Short: "Write a stored container's original bytes to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(func(cat *catalog.Catalog) error {
				raw, err := cat.Raw(args[0])
				if err != nil {
					return err
				}
				if err := os.WriteFile(args[1], raw, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", args[1], err)
				}
				cmd.Printf("Exported %d bytes to %s\n", len(raw), args[1])
				return nil
			})
		},
	}
}

func newCatalogRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Remove stored containers",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(func(cat *catalog.Catalog) error {
				for _, id := range args {
					if err := cat.Delete(id); err != nil {
						return err
					}
				}
				return output(cmd.OutOrStdout(), map[string][]string{"deleted": args}, func(tw *tabwriter.Writer) {
					for _, id := range args {
						fmt.Fprintf(tw, "Deleted %s\n", id)
					}
				})
			})
		},
	}
}
