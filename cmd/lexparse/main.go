package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/coolbeans/lexparse/pkg/fetch"
	"github.com/coolbeans/lexparse/pkg/parse"
	"github.com/coolbeans/lexparse/pkg/serve"
	"github.com/coolbeans/lexparse/pkg/watch"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "lexparse",
		Short: "EUR-Lex regulation structure extractor",
		Long: `Lexparse extracts the hierarchical structure of EUR-Lex legal
documents from their published HTML.

It turns a regulation into:
  - A flat sequence of addressable content chunks with hierarchy paths
  - A nested table of contents for navigation
  - Structural warnings for anomalous markup

Documents can be read from local files or fetched from EUR-Lex by
CELEX number or citation (e.g. "Regulation (EU) 2019/947").`,
		Version: version,
	}

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(chunksCmd())
	rootCmd.AddCommand(tocCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// addInputFlags registers the document input flags shared by the parsing
// commands.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("source", "", "Path to a local EUR-Lex HTML file")
	cmd.Flags().String("reference", "", `Legislation reference to fetch (CELEX number or e.g. "Regulation (EU) 2019/947")`)
	cmd.Flags().String("config", "", "Path to a YAML fetch configuration file")
	cmd.Flags().String("cache-dir", "", "Directory for the on-disk document cache")
	cmd.Flags().StringP("output", "o", "", "Write JSON output to this file instead of stdout")
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a document into chunks, TOC, and warnings",
		Long: `Parse extracts the full structure of a EUR-Lex document.

Example:
  lexparse parse --source 2019-947.html --output 2019-947.json
  lexparse parse --reference "Regulation (EU) 2019/947" --stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			showStats, _ := cmd.Flags().GetBool("stats")

			result, origin, err := loadAndParse(cmd)
			if err != nil {
				return err
			}
			reportWarnings(result)

			if showStats {
				printStats(origin, result)
			}
			return writeOutput(cmd, result)
		},
	}
	addInputFlags(cmd)
	cmd.Flags().Bool("stats", false, "Print section type counts")
	return cmd
}

func chunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "Parse a document and output only the flat chunk sequence",
		Long: `Chunks outputs the flat chunk sequence, optionally narrowed to one
section type or one numbered section.

Example:
  lexparse chunks --source 2019-947.html --type article
  lexparse chunks --source 2019-947.html --type article --number 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sectionType, _ := cmd.Flags().GetString("type")
			number, _ := cmd.Flags().GetString("number")

			result, _, err := loadAndParse(cmd)
			if err != nil {
				return err
			}
			reportWarnings(result)

			chunks := selectChunks(result.Chunks, sectionType, number)
			if len(chunks) == 0 && (sectionType != "" || number != "") {
				return fmt.Errorf("no chunks match the given filter")
			}
			return writeOutput(cmd, chunks)
		},
	}
	addInputFlags(cmd)
	cmd.Flags().String("type", "", `Only chunks of this section type (e.g. "article", "recital")`)
	cmd.Flags().String("number", "", "Only chunks with this section number")
	return cmd
}

// selectChunks narrows the chunk sequence by section type and number. Empty
// filter values match everything.
func selectChunks(chunks []parse.RegulationChunk, sectionType, number string) []parse.RegulationChunk {
	if sectionType == "" && number == "" {
		return chunks
	}
	var selected []parse.RegulationChunk
	for _, chunk := range chunks {
		if sectionType != "" && string(chunk.SectionType) != sectionType {
			continue
		}
		if number != "" && chunk.Number != number {
			continue
		}
		selected = append(selected, chunk)
	}
	return selected
}

func tocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toc",
		Short: "Parse a document and output only the table of contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, _, err := loadAndParse(cmd)
			if err != nil {
				return err
			}
			reportWarnings(result)
			return writeOutput(cmd, result.TOC)
		},
	}
	addInputFlags(cmd)
	return cmd
}

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a document's HTML from EUR-Lex",
		Long: `Fetch retrieves the published HTML of a piece of legislation and
writes it to a file, without parsing it.

Example:
  lexparse fetch --reference 32019R0947
  lexparse fetch --reference "Regulation (EU) 2016/679" --output gdpr.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reference, _ := cmd.Flags().GetString("reference")
			output, _ := cmd.Flags().GetString("output")

			if reference == "" {
				return fmt.Errorf("--reference flag is required")
			}

			fetcher, err := newFetcher(cmd)
			if err != nil {
				return err
			}

			fmt.Printf("Fetching %s from EUR-Lex... ", reference)
			document, err := fetcher.Document(cmd.Context(), reference)
			if err != nil {
				fmt.Println("failed")
				return err
			}
			fmt.Printf("done (%d bytes)\n", len(document.HTML))

			if output == "" {
				output = document.CELEX + ".html"
			}
			if err := os.WriteFile(output, document.HTML, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Printf("Wrote %s (CELEX %s)\n", output, document.CELEX)
			return nil
		},
	}
	cmd.Flags().String("reference", "", "Legislation reference (CELEX number or citation)")
	cmd.Flags().String("config", "", "Path to a YAML fetch configuration file")
	cmd.Flags().String("cache-dir", "", "Directory for the on-disk document cache")
	cmd.Flags().StringP("output", "o", "", "Output file (default <CELEX>.html)")
	return cmd
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory and re-parse documents as they change",
		Long: `Watch monitors a directory for EUR-Lex HTML files and parses each
file whenever it appears or changes. Parsed output is written next to
the source file (or into --output-dir) as <name>.json.

Example:
  lexparse watch --dir ./regulations
  lexparse watch --dir ./regulations --output-dir ./parsed --initial-scan`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			outputDir, _ := cmd.Flags().GetString("output-dir")
			debounce, _ := cmd.Flags().GetDuration("debounce")
			initialScan, _ := cmd.Flags().GetBool("initial-scan")

			if dir == "" {
				return fmt.Errorf("--dir flag is required")
			}
			if outputDir != "" {
				if err := os.MkdirAll(outputDir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			watcher, err := watch.NewWatcher(watch.Config{
				Dir:         dir,
				Debounce:    debounce,
				InitialScan: initialScan,
			}, func(event watch.Event) {
				handleWatchEvent(event, outputDir)
			})
			if err != nil {
				return err
			}

			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Stop()

			fmt.Printf("Watching %s for document changes (Ctrl-C to stop)\n", dir)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			<-ctx.Done()

			fmt.Println("\nStopped watching")
			return nil
		},
	}
	cmd.Flags().String("dir", "", "Directory to watch for HTML files")
	cmd.Flags().String("output-dir", "", "Directory for parsed JSON output (default: next to the source)")
	cmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period before a changed file is parsed")
	cmd.Flags().Bool("initial-scan", false, "Parse files already present at startup")
	return cmd
}

// handleWatchEvent writes one parse outcome to disk and reports it.
func handleWatchEvent(event watch.Event, outputDir string) {
	if event.Err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", event.Path, event.Err)
		return
	}

	outputPath := strings.TrimSuffix(event.Path, filepath.Ext(event.Path)) + ".json"
	if outputDir != "" {
		outputPath = filepath.Join(outputDir, filepath.Base(outputPath))
	}

	data, err := json.MarshalIndent(event.Result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: encoding result: %v\n", event.Path, err)
		return
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s: writing output: %v\n", event.Path, err)
		return
	}

	fmt.Printf("%s: %d chunks, %d warnings -> %s\n",
		filepath.Base(event.Path), len(event.Result.Chunks), len(event.Result.Warnings), outputPath)
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve parsed documents over HTTP",
		Long: `Serve starts an HTTP API for submitting EUR-Lex HTML and reading
back the parsed structure.

Endpoints:
  POST   /documents              submit HTML, returns the document id
  GET    /documents              list stored documents
  GET    /documents/{id}/chunks  flat chunk sequence
  GET    /documents/{id}/toc     nested table of contents
  DELETE /documents/{id}         remove a document
  GET    /healthz                liveness check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")

			log := slog.New(slog.NewTextHandler(os.Stderr, nil))
			server := serve.NewServer(log)

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			errChan := make(chan error, 1)
			go func() {
				log.Info("listening", "addr", addr)
				errChan <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errChan:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().String("addr", ":8080", "Listen address")
	return cmd
}

// newFetcher builds a Fetcher from the --config and --cache-dir flags.
func newFetcher(cmd *cobra.Command) (*fetch.Fetcher, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")

	config := fetch.DefaultFetchConfig()
	if configPath != "" {
		loaded, err := fetch.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if cacheDir != "" {
		config.CacheDir = cacheDir
	}
	return fetch.NewFetcher(config)
}

// loadAndParse reads the document named by the input flags and parses it.
// It returns the result together with a human-readable origin label.
func loadAndParse(cmd *cobra.Command) (*parse.Result, string, error) {
	source, _ := cmd.Flags().GetString("source")
	reference, _ := cmd.Flags().GetString("reference")

	var html []byte
	var origin string

	switch {
	case source != "":
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read source: %w", err)
		}
		html, origin = data, source

	case reference != "":
		fetcher, err := newFetcher(cmd)
		if err != nil {
			return nil, "", err
		}
		document, err := fetcher.Document(cmd.Context(), reference)
		if err != nil {
			return nil, "", err
		}
		html, origin = document.HTML, "CELEX "+document.CELEX

	default:
		return nil, "", fmt.Errorf("either --source or --reference is required")
	}

	result, err := parse.ParseReader(bytes.NewReader(html))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse %s: %w", origin, err)
	}
	return result, origin, nil
}

// reportWarnings prints non-fatal parse warnings to stderr so they never
// corrupt JSON written to stdout.
func reportWarnings(result *parse.Result) {
	for _, warning := range result.Warnings {
		if warning.SourceID != "" {
			fmt.Fprintf(os.Stderr, "warning: %s (%s): %s\n", warning.Kind, warning.SourceID, warning.Detail)
		} else {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", warning.Kind, warning.Detail)
		}
	}
}

// printStats prints section type counts in document order of first
// appearance.
func printStats(origin string, result *parse.Result) {
	var order []parse.Kind
	counts := make(map[parse.Kind]int)
	for _, chunk := range result.Chunks {
		if counts[chunk.SectionType] == 0 {
			order = append(order, chunk.SectionType)
		}
		counts[chunk.SectionType]++
	}

	fmt.Printf("Parsed %s: %d chunks, %d warnings\n", origin, len(result.Chunks), len(result.Warnings))
	for _, kind := range order {
		fmt.Printf("  %-20s %d\n", kind, counts[kind])
	}
}

// writeOutput writes v as indented JSON to the --output file, or stdout.
func writeOutput(cmd *cobra.Command, v any) error {
	output, _ := cmd.Flags().GetString("output")

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	if output == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Printf("Wrote %s\n", output)
	return nil
}
