package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"jsomr2mei/internal/classifier"
	"jsomr2mei/internal/config"
	"jsomr2mei/internal/crawler"
	"jsomr2mei/internal/pipeline"
	"jsomr2mei/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "jsomr2mei",
		Short: "Convert pitch-finding output (JSOMR) and lyric boxes into MEI neume notation",
	}
	configPath string
	dbPath     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the run database (SQLite); overrides storage.path")

	convertCmd.Flags().StringP("syllables", "s", "", "Text alignment JSON for the page")
	convertCmd.Flags().StringP("out", "o", "", "Write MEI here and record the run (default: stdout)")

	batchCmd.Flags().String("syllables-dir", "", "Directory holding <key>.json or syls_<key>.json (default: the pages directory)")
	batchCmd.Flags().String("out-dir", "mei", "Output directory")
	batchCmd.Flags().IntP("workers", "w", 0, "Concurrent pages (default: number of CPUs)")
	batchCmd.Flags().BoolP("force", "f", false, "Convert pages even if their inputs are unchanged")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(runsCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	return cfg
}

// loadTable returns the built-in table, overlaid with the configured
// mapping sheet if there is one.
func loadTable(cfg *config.Config) *classifier.Table {
	table := classifier.Default()
	if cfg.Classifier.Path == "" {
		return table
	}

	f, err := os.Open(cfg.Classifier.Path)
	if err != nil {
		log.Fatalf("Failed to open mapping table: %v", err)
	}
	defer f.Close()

	sheet, rowErrs, err := classifier.Load(f)
	if err != nil {
		log.Fatalf("Failed to load mapping table: %v", err)
	}
	for _, re := range rowErrs {
		log.Printf("⚠️ mapping table %v", re)
	}
	table.Merge(sheet)
	return table
}

func initStore(cfg *config.Config) (*storage.SQLiteStore, error) {
	return storage.NewSQLiteStore(cfg.Storage.Path)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

var convertCmd = &cobra.Command{
	Use:   "convert PAGE.json",
	Short: "Convert one page",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sylPath, _ := cmd.Flags().GetString("syllables")
		outPath, _ := cmd.Flags().GetString("out")

		cfg := loadConfig()
		table := loadTable(cfg)
		ctx, cancel := signalContext()
		defer cancel()

		job := crawler.Job{
			Key:           pageKey(args[0]),
			PagePath:      args[0],
			SyllablesPath: sylPath,
		}

		if outPath == "" {
			conv := pipeline.NewConverter(cfg, table, nil)
			conv.Out = os.Stderr

			page, err := os.ReadFile(job.PagePath)
			if err != nil {
				log.Fatalf("Failed to read page: %v", err)
			}
			var syls []byte
			if sylPath != "" {
				if syls, err = os.ReadFile(sylPath); err != nil {
					log.Fatalf("Failed to read syllables: %v", err)
				}
			}
			out, err := conv.Convert(ctx, pipeline.Input{Key: job.Key, Page: page, Syllables: syls})
			if err != nil {
				log.Fatalf("Conversion failed: %v", err)
			}
			os.Stdout.Write(out.MEI)
			return
		}

		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		conv := pipeline.NewConverter(cfg, table, store)
		out, err := conv.ConvertJob(ctx, job, outPath, true)
		if err != nil {
			log.Fatalf("Conversion failed: %v", err)
		}
		fmt.Printf("✅ Wrote %s (%d zones, %d warnings)\n", outPath, out.Result.Stats.Zones, len(out.Result.Warnings))
	},
}

// pageKey derives the run key from a page file name: pitches_<key>.json.
func pageKey(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimPrefix(name, "pitches_")
}

var batchCmd = &cobra.Command{
	Use:   "batch PAGES_DIR",
	Short: "Convert every pitches_<key>.json under a directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sylDir, _ := cmd.Flags().GetString("syllables-dir")
		outDir, _ := cmd.Flags().GetString("out-dir")
		workers, _ := cmd.Flags().GetInt("workers")
		force, _ := cmd.Flags().GetBool("force")

		cfg := loadConfig()
		table := loadTable(cfg)
		ctx, cancel := signalContext()
		defer cancel()

		jobs, err := crawler.NewCrawler().ScanPages(args[0], sylDir)
		if err != nil {
			log.Fatalf("Failed to scan %s: %v", args[0], err)
		}
		if len(jobs) == 0 {
			fmt.Println("✅ No pages found.")
			return
		}

		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		report, err := pipeline.NewConverter(cfg, table, store).Batch(ctx, jobs, outDir, workers, force)
		if err != nil {
			log.Fatalf("Batch aborted: %v", err)
		}
		if len(report.Failed) > 0 {
			os.Exit(2)
		}
	},
}

var tableCmd = &cobra.Command{
	Use:   "table CSV",
	Short: "Check a mapping table export and list its entries",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		if err != nil {
			log.Fatalf("Failed to open %s: %v", args[0], err)
		}
		defer f.Close()

		table, rowErrs, err := classifier.Load(f)
		if err != nil {
			log.Fatalf("Failed to load mapping table: %v", err)
		}

		for _, name := range table.Names() {
			tmpl, _ := table.Lookup(name)
			ncs := len(tmpl.ChildrenByName("nc"))
			if ncs > 0 {
				fmt.Printf("  %-40s <%s> %d nc\n", name, tmpl.Name, ncs)
			} else {
				fmt.Printf("  %-40s <%s>\n", name, tmpl.Name)
			}
		}
		fmt.Printf("📋 %d entries, %d rows skipped\n", table.Len(), len(rowErrs))
		for _, re := range rowErrs {
			fmt.Printf("  ⚠️ %v\n", re)
		}
		if len(rowErrs) > 0 {
			os.Exit(2)
		}
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs [KEY]",
	Short: "List recorded runs, or show one run with its zones",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		ctx := context.Background()
		if len(args) == 0 {
			runs, err := store.ListRuns(ctx)
			if err != nil {
				log.Fatalf("Failed to list runs: %v", err)
			}
			for _, r := range runs {
				fmt.Printf("%-20s %s  %3d syllables %4d neumes %3d warnings  %s\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Stats.Syllables, r.Stats.Neumes, len(r.Warnings), r.OutputPath)
			}
			return
		}

		r, err := store.GetRun(ctx, args[0])
		if err != nil {
			log.Fatalf("Failed to load run: %v", err)
		}
		fmt.Printf("Run %s (MEI %s, input %s)\n", r.ID, r.MEIVersion, r.InputHash)
		fmt.Printf("  page:      %s\n", r.PagePath)
		fmt.Printf("  syllables: %s\n", r.SyllablesPath)
		fmt.Printf("  output:    %s\n", r.OutputPath)
		fmt.Printf("  stats:     %+v\n", r.Stats)
		for _, w := range r.Warnings {
			fmt.Printf("  ⚠️ %s\n", w)
		}

		zones, err := store.FindZones(ctx, r.ID, "")
		if err != nil {
			log.Fatalf("Failed to load zones: %v", err)
		}
		counts := map[string]int{}
		for _, z := range zones {
			counts[z.Element]++
		}
		fmt.Printf("  zones:     %d", len(zones))
		for _, el := range []string{"syllable", "nc", "clef", "custos", "sb", "accid", "divLine"} {
			if counts[el] > 0 {
				fmt.Printf(" %s=%d", el, counts[el])
			}
		}
		fmt.Println()
	},
}
