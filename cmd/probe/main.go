// Command probe profiles a single CSV file without touching a catalog store.
//
// It runs the same profiling the registry performs for every file (header
// cleaning, canonical lookup, type inference, quirks, enum distributions) and
// prints the result.
//
// Output modes
//
//   - Default mode: a per-column text report followed by enum distributions.
//   - JSON mode (-json): the full file profile as JSON, for scripting.
//
// The file may be given with -file or as the first positional argument. When
// -root is set, the reported path is relative to it and the source/category are
// derived from the filename exactly as in a registry run.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"registry/internal/probe"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: load .env: %v", err)
	}

	var (
		flagFile = flag.String("file", "", "Path of the CSV file to profile")

		// flagRoot only affects the reported relative path.
		flagRoot = flag.String("root", "", "Dataset root the path is reported relative to (env REGISTRY_ROOT)")

		flagJSON   = flag.Bool("json", false, "Print the file profile as JSON instead of the text report")
		flagPretty = flag.Bool("pretty", true, "Pretty-print JSON output")

		// Profiling reads the whole file; bound it so a stuck mount fails instead of hanging.
		flagTimeout = flag.Duration("timeout", 2*time.Minute, "Maximum time to spend profiling")
	)
	flag.Parse()

	path := strings.TrimSpace(*flagFile)
	if path == "" && flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		flag.Usage()
		os.Exit(2)
	}

	root := strings.TrimSpace(*flagRoot)
	if root == "" {
		root = strings.TrimSpace(os.Getenv("REGISTRY_ROOT"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()

	fp, err := probe.ProfileFile(ctx, root, path)
	if err != nil {
		cancel()
		fatalf("probe %s: %v", path, err)
	}

	if !*flagJSON {
		fmt.Print(probe.FormatReport(fp))
		return
	}

	var b []byte
	if *flagPretty {
		b, err = json.MarshalIndent(fp, "", "  ")
	} else {
		b, err = json.Marshal(fp)
	}
	if err != nil {
		cancel()
		fatalf("encode profile: %v", err)
	}
	os.Stdout.Write(append(b, '\n'))
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
