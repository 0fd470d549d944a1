// Command coupon-ingest imports promo codes from partner feed exports.
//
// Every feed is a gzip-compressed CSV with "CODE,AMOUNT" lines. A code is
// imported when at least --quorum feeds list it; its amount is the lowest
// amount any of those feeds offers. Feeds are scanned twice: the first pass
// builds one bloom filter per feed, the second keeps only codes that the
// filters of other feeds report, so memory stays bounded by the overlap.
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
	"sort"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-shop/internal/domain/coupon"
	"github.com/xenking/kart-shop/internal/storage/postgres"
)

const (
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	maxFeeds      = 64
	batchSize     = 1000
	minCodeLen    = 4
	maxCodeLen    = 32
)

// offer is a code seen in a feed with the amount that feed grants.
type offer struct {
	code   string
	amount decimal.Decimal
}

// candidate aggregates the feeds listing a code.
type candidate struct {
	feeds  uint64
	amount decimal.Decimal
}

func main() {
	var (
		pattern     string
		databaseURL string
		quorum      int
		capacity    uint
	)

	flag.StringVar(&pattern, "feeds", "data/*.csv.gz", "glob matching the feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&quorum, "quorum", 2, "number of feeds that must list a code")
	flag.UintVar(&capacity, "capacity", 10_000_000, "expected codes per feed, sizes the bloom filters")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, pattern, databaseURL, quorum, capacity); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, pattern, databaseURL string, quorum int, capacity uint) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrap(err, "match feeds")
	}
	sort.Strings(files)
	switch {
	case len(files) == 0:
		return errors.Errorf("no feeds match %q", pattern)
	case len(files) > maxFeeds:
		return errors.Errorf("%d feeds exceed the limit of %d", len(files), maxFeeds)
	case quorum < 1 || quorum > len(files):
		return errors.Errorf("quorum %d must be between 1 and %d", quorum, len(files))
	}

	slog.Info("pass 1: building bloom filters", slog.Int("feeds", len(files)))
	filters, err := buildFilters(ctx, files, capacity)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: collecting candidates", slog.Int("quorum", quorum))
	coupons, err := collect(ctx, files, filters, quorum)
	if err != nil {
		return errors.Wrap(err, "collect coupons")
	}
	slog.Info("coupons accepted", slog.Int("count", len(coupons)))
	if len(coupons) == 0 {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := postgres.NewCouponRepository(pool)
	for start := 0; start < len(coupons); start += batchSize {
		end := min(start+batchSize, len(coupons))
		if err := repo.Upsert(ctx, coupons[start:end]); err != nil {
			return errors.Wrap(err, "upsert coupons")
		}
		slog.Info("write progress", slog.Int("written", end), slog.Int("total", len(coupons)))
	}
	return nil
}

// buildFilters creates one bloom filter per feed, concurrently.
func buildFilters(ctx context.Context, files []string, capacity uint) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(capacity, bloomFPR)
			var n int
			err := streamFeed(ctx, path, func(o offer) {
				filter.AddString(o.code)
				n++
				if n%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.String("feed", path), slog.Int("codes", n))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "feed %s", path)
			}
			slog.Info("pass 1 complete", slog.String("feed", path), slog.Int("codes", n))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// collect rescans the feeds and keeps codes that at least quorum feeds list.
// With a quorum of one every code is kept.
func collect(ctx context.Context, files []string, filters []*bloom.BloomFilter, quorum int) ([]coupon.Coupon, error) {
	perFeed := make([]map[string]candidate, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			seen := make(map[string]candidate)
			err := streamFeed(ctx, path, func(o offer) {
				if quorum > 1 && !listedElsewhere(filters, i, o.code) {
					return
				}
				seen[o.code] = merge(seen[o.code], candidate{feeds: 1 << uint(i), amount: o.amount})
			})
			if err != nil {
				return errors.Wrapf(err, "feed %s", path)
			}
			slog.Info("pass 2 complete", slog.String("feed", path), slog.Int("candidates", len(seen)))
			perFeed[i] = seen
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return accept(perFeed, quorum), nil
}

func listedElsewhere(filters []*bloom.BloomFilter, self int, code string) bool {
	for j, f := range filters {
		if j != self && f.TestString(code) {
			return true
		}
	}
	return false
}

// merge combines two observations of the same code.
func merge(a, b candidate) candidate {
	if a.feeds == 0 {
		return b
	}
	out := candidate{feeds: a.feeds | b.feeds, amount: a.amount}
	if b.amount.LessThan(a.amount) {
		out.amount = b.amount
	}
	return out
}

// accept merges per-feed candidates and returns the codes listed by at least
// quorum feeds, sorted by code.
func accept(perFeed []map[string]candidate, quorum int) []coupon.Coupon {
	merged := make(map[string]candidate)
	for _, feed := range perFeed {
		for code, c := range feed {
			merged[code] = merge(merged[code], c)
		}
	}

	var out []coupon.Coupon
	for code, c := range merged {
		if bits.OnesCount64(c.feeds) >= quorum {
			out = append(out, coupon.Coupon{Code: code, Amount: c.amount})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// parseLine parses a "CODE,AMOUNT" feed line. Codes are upper-cased.
func parseLine(line string) (offer, bool) {
	code, amount, ok := strings.Cut(strings.TrimSpace(line), ",")
	if !ok {
		return offer{}, false
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return offer{}, false
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '-' && c != '_' {
			return offer{}, false
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || !d.IsPositive() {
		return offer{}, false
	}
	return offer{code: code, amount: d.Round(2)}, true
}

// streamFeed calls fn for every valid line of a gzip-compressed feed.
func streamFeed(ctx context.Context, path string, fn func(offer)) error {
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
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if o, ok := parseLine(scanner.Text()); ok {
			fn(o)
		}
	}
	return errors.Wrapf(scanner.Err(), "scan %s", path)
}
