// Command discount-import bulk upserts discounts from gzipped JSON lines
// files. Discounts are keyed by name; when a name appears in more than one
// file, the file that sorts last wins.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/bahodirov07uz/shop/internal/domain/discount"
	"github.com/bahodirov07uz/shop/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	maxLineSize   = 1 << 20
	progressEvery = 1000
)

// fileResult holds the discounts parsed from one file and a bloom filter of
// their names.
type fileResult struct {
	path      string
	discounts []discount.Discount
	names     *bloom.BloomFilter
}

func main() {
	var (
		dataDir     string
		databaseURL string
		dryRun      bool
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz discount files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "parse and validate files without writing")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, dryRun); err != nil {
		slog.Error("discount import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("discount import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, dryRun bool) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list files")
	}
	if len(files) == 0 {
		slog.Info("no discount files found", slog.String("dir", dataDir))
		return nil
	}
	if len(files) > bits.UintSize {
		return errors.Errorf("too many files: %d (max %d)", len(files), bits.UintSize)
	}

	slog.Info("parsing discount files", slog.Int("files", len(files)))

	results, err := parseFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse files")
	}

	discounts := mergeResults(results)

	slog.Info("discounts ready", slog.Int("count", len(discounts)))

	if dryRun || len(discounts) == 0 {
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeDiscounts(ctx, postgres.NewDiscountRepository(pool), discounts); err != nil {
		return errors.Wrap(err, "write discounts to database")
	}

	return nil
}

// parseFiles decodes every file concurrently.
func parseFiles(ctx context.Context, files []string) ([]fileResult, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			r, err := parseFile(ctx, f)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func parseFile(ctx context.Context, path string) (fileResult, error) {
	r := fileResult{
		path:  path,
		names: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}

	if err := streamGzFile(ctx, path, func(line int, data []byte) error {
		v, err := decodeDiscount(jx.DecodeBytes(data))
		if err != nil {
			return errors.Wrapf(err, "%s:%d", filepath.Base(path), line)
		}
		r.names.AddString(v.Name)
		r.discounts = append(r.discounts, v)
		return nil
	}); err != nil {
		return r, err
	}

	slog.Info("file parsed",
		slog.String("file", filepath.Base(path)),
		slog.Int("discounts", len(r.discounts)),
	)

	return r, nil
}

// mergeResults flattens results in file order, dropping every occurrence of
// a name that a later file redefines. Names are pre-screened against the
// other files' bloom filters; a name is a confirmed duplicate only when at
// least two files flag it.
func mergeResults(results []fileResult) []discount.Discount {
	seen := make(map[string]uint)
	for i, r := range results {
		bit := uint(1) << uint(i)
		for _, v := range r.discounts {
			for j, other := range results {
				if j != i && other.names.TestString(v.Name) {
					seen[v.Name] |= bit
					break
				}
			}
		}
	}

	last := make(map[string]int)
	for name, mask := range seen {
		if bits.OnesCount(mask) < 2 {
			continue
		}
		last[name] = bits.Len(mask) - 1
		slog.Warn("discount defined in several files, keeping the last",
			slog.String("name", name),
			slog.String("file", filepath.Base(results[last[name]].path)),
		)
	}

	var out []discount.Discount
	for i, r := range results {
		for _, v := range r.discounts {
			if idx, dup := last[v.Name]; dup && idx != i {
				continue
			}
			out = append(out, v)
		}
	}
	return out
}

// streamGzFile opens a gzip-compressed file and calls fn for each non-empty
// line.
func streamGzFile(ctx context.Context, path string, fn func(line int, data []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(line, scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeDiscounts upserts all discounts into the database.
func writeDiscounts(ctx context.Context, repo *postgres.DiscountRepository, discounts []discount.Discount) error {
	slog.Info("writing discounts to database", slog.Int("count", len(discounts)))

	for i := range discounts {
		if _, err := repo.Upsert(ctx, &discounts[i]); err != nil {
			return err
		}

		if (i+1)%progressEvery == 0 || i+1 == len(discounts) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(discounts)))
		}
	}

	return nil
}
