package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-assets/pkg/simpleassets"
	"github.com/tendant/simple-assets/pkg/simpleassets/importers"
)

// Document is the asset type for structured JSON and YAML files.
type Document map[string]any

const (
	kindAuto     = "auto"
	kindText     = "text"
	kindDocument = "document"
	kindAseprite = "ase"
)

// registerPlugins installs the importers and exporters assetctl knows about
func registerPlugins(db *simpleassets.Database) {
	simpleassets.AddImporter[importers.AsepriteFile](db, importers.AsepriteImporter{})
	simpleassets.AddImporter[Document](db, importers.JSONImporter[Document]{})
	simpleassets.AddImporter[Document](db, importers.YAMLImporter[Document]{})
	simpleassets.AddImporter[importers.TextAsset](db, importers.TextImporter{})

	simpleassets.AddExporter[Document](db, importers.JSONExporter[Document]{})
	simpleassets.AddExporter[Document](db, importers.YAMLExporter[Document]{})
	simpleassets.AddExporter[importers.TextAsset](db, importers.TextExporter{})
}

// kindOf picks the asset kind for a path from its extension
func kindOf(p simpleassets.AssetPath) string {
	switch p.Extension() {
	case "ase", "aseprite":
		return kindAseprite
	case "json", "yaml", "yml":
		return kindDocument
	case "txt", "md":
		return kindText
	}
	return ""
}

// NewHashCommand creates the hash command
func NewHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <path>...",
		Short: "Print the content hash of assets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			paths, err := resolvePaths(db, args)
			if err != nil {
				return err
			}

			for _, p := range paths {
				h, err := db.Hash(cmd.Context(), p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", h, p)
			}
			return nil
		},
	}
}

// NewImportCommand creates the import command
func NewImportCommand() *cobra.Command {
	var kind string
	var pattern string
	var noFlush bool

	cmd := &cobra.Command{
		Use:   "import [path]...",
		Short: "Import assets and record them in the manifest",
		Long: `Import assets and record them in the manifest.

With no paths, every document under the root matching --pattern is imported.
Assets whose content hash is unchanged are served from the cache. The
manifest is flushed afterwards unless --no-flush is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			registerPlugins(db)
			ctx := cmd.Context()

			var paths []simpleassets.AssetPath
			if len(args) == 0 {
				if paths, err = db.Scan(ctx, pattern); err != nil {
					return err
				}
			} else if paths, err = resolvePaths(db, args); err != nil {
				return err
			}

			groups := make(map[string][]simpleassets.AssetPath)
			for _, p := range paths {
				k := kind
				if k == kindAuto {
					k = kindOf(p)
				}
				if k == "" {
					if len(args) > 0 {
						return fmt.Errorf("cannot tell asset kind of %s, use --type", p)
					}
					continue
				}
				groups[k] = append(groups[k], p)
			}

			start := time.Now()
			total := 0
			for k, group := range groups {
				var n int
				switch k {
				case kindAseprite:
					n, err = importAll[importers.AsepriteFile](cmd, db, group, cfg.Concurrency)
				case kindDocument:
					n, err = importAll[Document](cmd, db, group, cfg.Concurrency)
				case kindText:
					n, err = importAll[importers.TextAsset](cmd, db, group, cfg.Concurrency)
				default:
					return fmt.Errorf("unknown asset type: %s", k)
				}
				if err != nil {
					return err
				}
				total += n
			}

			if !noFlush && db.HasChanges() {
				if err := db.FlushChanges(ctx); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d assets in %s\n", total, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", kindAuto, "asset type: auto, text, document, ase")
	cmd.Flags().StringVar(&pattern, "pattern", "**/*", "glob selecting documents when no paths are given")
	cmd.Flags().BoolVar(&noFlush, "no-flush", false, "do not write the manifest")

	return cmd
}

func importAll[T any](cmd *cobra.Command, db *simpleassets.Database, paths []simpleassets.AssetPath, concurrency int) (int, error) {
	assets, err := simpleassets.LoadAll[T](cmd.Context(), db, paths, concurrency)
	if err != nil {
		return 0, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		for _, p := range paths {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %+v\n", p, *assets[p])
		}
	}
	return len(assets), nil
}

// NewChangedCommand creates the changed command
func NewChangedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "changed <path>...",
		Short: "Report whether assets differ from their manifest records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			paths, err := resolvePaths(db, args)
			if err != nil {
				return err
			}

			for _, p := range paths {
				changed, err := db.Changed(cmd.Context(), p)
				if err != nil {
					return err
				}
				state := "unchanged"
				if changed {
					state = "changed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-9s %s\n", state, p)
			}
			return nil
		},
	}
}

// NewConvertCommand creates the convert command
func NewConvertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <src> <dst>",
		Short: "Re-encode a JSON or YAML document",
		Long:  `Load a JSON or YAML document and export it to dst, choosing the encoding from dst's extension.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			registerPlugins(db)

			paths, err := resolvePaths(db, args)
			if err != nil {
				return err
			}

			doc, err := simpleassets.Load[Document](cmd.Context(), db, paths[0])
			if err != nil {
				return err
			}
			if err := simpleassets.Export(cmd.Context(), db, paths[1], doc); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", paths[1])
			return nil
		},
	}
}

// NewManifestCommand creates the manifest command
func NewManifestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "List manifest records",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			records := db.Records()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tTYPE\tHASH\tID\tIMPORTED")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rec.Path, rec.Type, rec.Hash.Short(), rec.ID, rec.ImportedAt.Format(time.RFC3339))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d records in %s\n", len(records), db.ManifestPath())
			return nil
		},
	}
}

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	var showChanged bool

	cmd := &cobra.Command{
		Use:   "scan [pattern]",
		Short: "List documents under the root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			pattern := "**/*"
			if len(args) == 1 {
				pattern = args[0]
			}
			paths, err := db.Scan(cmd.Context(), pattern)
			if err != nil {
				return err
			}

			for _, p := range paths {
				if !showChanged {
					fmt.Fprintln(cmd.OutOrStdout(), p)
					continue
				}
				changed, err := db.Changed(cmd.Context(), p)
				if err != nil {
					return err
				}
				marker := " "
				if changed {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, p)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showChanged, "changed", false, "mark documents that differ from the manifest with *")

	return cmd
}

// NewSweepCommand creates the sweep command
func NewSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Drop manifest records whose source is gone and flush",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			before := len(db.Records())
			if err := db.FlushChanges(cmd.Context(), simpleassets.WithSweep()); err != nil {
				return err
			}
			removed := before - len(db.Records())

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records, %d remain\n", removed, before-removed)
			return nil
		},
	}
}
