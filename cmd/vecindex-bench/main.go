// Copyright (c) 2024 LevelGraph Go Contributors
//
// Permission is hereby granted, free of charge, to any person
// obtaining a copy of this software and associated documentation
// files (the "Software"), to deal in the Software without
// restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the
// Software is furnished to do so, subject to the following
// conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/vecindex/vecindex/exact"
	"github.com/vecindex/vecindex/pkg/hnsw"
	"github.com/vecindex/vecindex/pkg/pnii"
	"github.com/vecindex/vecindex/pkg/store"
	"github.com/vecindex/vecindex/vector"
)

func main() {
	cli := &CLI{
		Out: os.Stdout,
		Err: os.Stderr,
	}
	os.Exit(cli.Run(os.Args[1:]))
}

// CLI encapsulates the command-line interface for the benchmark tool.
type CLI struct {
	Out io.Writer // Output writer (default: os.Stdout)
	Err io.Writer // Error writer (default: os.Stderr)
}

// Run executes the CLI with the given arguments and returns an exit code.
func (c *CLI) Run(args []string) int {
	if len(args) < 1 {
		c.printUsage()
		return 1
	}

	cmd := args[0]
	cmdArgs := args[1:]

	var err error
	switch cmd {
	case "hnsw":
		err = c.runHNSW(cmdArgs)
	case "pnii":
		err = c.runPNII(cmdArgs)
	case "help", "-h", "--help":
		c.printUsage()
		return 0
	default:
		fmt.Fprintf(c.Err, "Unknown command: %s\n", cmd)
		c.printUsage()
		return 1
	}

	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (c *CLI) printUsage() {
	fmt.Fprint(c.Out, `vecindex-bench

Usage:
  vecindex-bench <command> [arguments]

Commands:
  hnsw   Build an HNSW index over synthetic vectors and report build time,
         query throughput, and recall@k against the exact oracle
  pnii   Same, but for the pivot-neighborhood inverted index
  help   Show this help message

Global Flags:
  -n <int>       Number of indexed vectors (default 10000)
  -dims <int>    Vector dimensionality (default 32)
  -queries <int> Number of query vectors (default 200)
  -k <int>       Neighbors requested per query (default 10)
  -seed <int>    RNG seed for the synthetic dataset (default 1)
  -disk          Stage the corpus through a LevelDB-backed object store
                 before building the index, instead of keeping it
                 resident in memory throughout
`)
}

type benchParams struct {
	n, dims, queries, k int
	seed                int64
	disk                bool
}

func (c *CLI) parseFlags(name string, args []string) (*benchParams, *flag.FlagSet) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.Err)
	p := &benchParams{}
	fs.IntVar(&p.n, "n", 10000, "number of indexed vectors")
	fs.IntVar(&p.dims, "dims", 32, "vector dimensionality")
	fs.IntVar(&p.queries, "queries", 200, "number of query vectors")
	fs.IntVar(&p.k, "k", 10, "neighbors requested per query")
	fs.Int64Var(&p.seed, "seed", 1, "RNG seed for the synthetic dataset")
	fs.BoolVar(&p.disk, "disk", false, "stage the corpus through a disk-backed object store before building")
	return p, fs
}

// stageObjects optionally round-trips encoded through a disk-backed
// store before the index build, exercising the same ingestion path a
// dataset too large to hold in memory would use: append to LevelDBStore,
// then read every object back out through the ObjectStore interface.
// With disk=false it returns encoded unchanged.
func stageObjects(encoded [][]byte, disk bool) ([][]byte, error) {
	if !disk {
		return encoded, nil
	}

	dir, err := os.MkdirTemp("", "vecindex-bench-disk-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(dir)

	s, err := store.OpenLevelDBStore(filepath.Join(dir, "objects.db"))
	if err != nil {
		return nil, fmt.Errorf("open disk store: %w", err)
	}
	defer s.Close()

	for _, obj := range encoded {
		if _, err := s.Append(obj); err != nil {
			return nil, fmt.Errorf("append to disk store: %w", err)
		}
	}

	var readBack store.ObjectStore = s
	out := make([][]byte, readBack.Len())
	for id := range out {
		obj, err := readBack.Get(uint32(id))
		if err != nil {
			return nil, fmt.Errorf("read back id %d: %w", id, err)
		}
		out[id] = append([]byte(nil), obj...)
	}
	return out, nil
}

func randomVectors(rng *rand.Rand, n, dims int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dims)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		out[i] = v
	}
	return out
}

func recallAt(got []uint32, want []uint32) float64 {
	wantSet := make(map[uint32]bool, len(want))
	for _, id := range want {
		wantSet[id] = true
	}
	hits := 0
	for _, id := range got {
		if wantSet[id] {
			hits++
		}
	}
	if len(want) == 0 {
		return 1
	}
	return float64(hits) / float64(len(want))
}

func (c *CLI) runHNSW(args []string) error {
	p, fs := c.parseFlags("hnsw", args)
	if err := fs.Parse(args); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(p.seed))
	corpus := randomVectors(rng, p.n, p.dims)
	queries := randomVectors(rng, p.queries, p.dims)

	space := vector.EuclideanSpace()
	oracle := exact.New(space)
	objects := make([][]byte, p.n)
	for i, v := range corpus {
		objects[i] = vector.Encode(v)
		oracle.Add(objects[i])
	}
	objects, err := stageObjects(objects, p.disk)
	if err != nil {
		return err
	}

	idx := hnsw.New(space, hnsw.WithSeed(uint64(p.seed)))
	buildStart := time.Now()
	if _, err := idx.BuildAll(context.Background(), objects); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	buildElapsed := time.Since(buildStart)

	var totalRecall float64
	queryStart := time.Now()
	for _, q := range queries {
		encoded := vector.Encode(q)
		got, _ := idx.Search(context.Background(), encoded, p.k)
		want := oracle.Search(encoded, p.k)
		totalRecall += recallAt(matchIDs(got), exactIDs(want))
	}
	queryElapsed := time.Since(queryStart)

	fmt.Fprintf(c.Out, "hnsw: n=%d dims=%d queries=%d k=%d\n", p.n, p.dims, p.queries, p.k)
	fmt.Fprintf(c.Out, "  build:      %v (%.1f vectors/sec)\n", buildElapsed, float64(p.n)/buildElapsed.Seconds())
	fmt.Fprintf(c.Out, "  query:      %v (%.1f queries/sec)\n", queryElapsed, float64(p.queries)/queryElapsed.Seconds())
	fmt.Fprintf(c.Out, "  recall@%d:  %.3f\n", p.k, totalRecall/float64(p.queries))
	return nil
}

func (c *CLI) runPNII(args []string) error {
	p, fs := c.parseFlags("pnii", args)
	if err := fs.Parse(args); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(p.seed))
	corpus := randomVectors(rng, p.n, p.dims)
	queries := randomVectors(rng, p.queries, p.dims)

	space := vector.EuclideanSpace()
	oracle := exact.New(space)
	objects := make([][]byte, p.n)
	for i, v := range corpus {
		objects[i] = vector.Encode(v)
		oracle.Add(objects[i])
	}
	objects, err := stageObjects(objects, p.disk)
	if err != nil {
		return err
	}

	buildStart := time.Now()
	idx, err := pnii.New(context.Background(), space, objects, pnii.WithSeed(p.seed))
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	buildElapsed := time.Since(buildStart)

	var totalRecall float64
	queryStart := time.Now()
	for _, q := range queries {
		encoded := vector.Encode(q)
		got := idx.Search(encoded, p.k)
		want := oracle.Search(encoded, p.k)
		totalRecall += recallAt(pniiMatchIDs(got), exactIDs(want))
	}
	queryElapsed := time.Since(queryStart)

	fmt.Fprintf(c.Out, "pnii: n=%d dims=%d queries=%d k=%d\n", p.n, p.dims, p.queries, p.k)
	fmt.Fprintf(c.Out, "  build:      %v (%.1f vectors/sec)\n", buildElapsed, float64(p.n)/buildElapsed.Seconds())
	fmt.Fprintf(c.Out, "  query:      %v (%.1f queries/sec)\n", queryElapsed, float64(p.queries)/queryElapsed.Seconds())
	fmt.Fprintf(c.Out, "  recall@%d:  %.3f\n", p.k, totalRecall/float64(p.queries))
	return nil
}

func matchIDs(matches []hnsw.Match) []uint32 {
	out := make([]uint32, len(matches))
	for i, m := range matches {
		out[i] = m.ID
	}
	return out
}

func pniiMatchIDs(matches []pnii.Match) []uint32 {
	out := make([]uint32, len(matches))
	for i, m := range matches {
		out[i] = m.ID
	}
	return out
}

func exactIDs(matches []exact.Match) []uint32 {
	out := make([]uint32, len(matches))
	for i, m := range matches {
		out[i] = m.ID
	}
	return out
}
