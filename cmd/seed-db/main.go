package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/bahodirov07uz/shop/db"
	"github.com/bahodirov07uz/shop/internal/domain/auth"
	"github.com/bahodirov07uz/shop/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog", "", "path to a YAML catalog (defaults to the embedded db/seed/catalog.yaml)")
	flag.StringVar(&apiKey, "api-key", "", "staff API key to seed (or ASIC_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ASIC_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("ASIC_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("ASIC_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
	data := db.Catalog
	if catalogFile != "" {
		slog.Info("reading catalog file", slog.String("path", catalogFile))

		var err error
		if data, err = os.ReadFile(catalogFile); err != nil {
			return errors.Wrap(err, "read catalog file")
		}
	}
	c, err := parseCatalog(data)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	ref, err := seedCatalog(ctx, postgres.NewProductRepository(pool), c)
	if err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedDiscounts(ctx, postgres.NewDiscountRepository(pool), c, ref); err != nil {
		return errors.Wrap(err, "seed discounts")
	}

	if err := seedRules(ctx, postgres.NewRuleRepository(pool), c); err != nil {
		return errors.Wrap(err, "seed status rules")
	}

	if apiKey == "" {
		slog.Info("no staff API key given, skipping")
		return nil
	}
	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedCatalog(ctx context.Context, repo *postgres.ProductRepository, c *catalog) (ids, error) {
	ref := ids{
		manufacturers: make(map[string]int64, len(c.Manufacturers)),
		categories:    make(map[string]int64, len(c.Categories)),
		products:      make(map[string]int64, len(c.Products)),
	}

	for _, m := range c.Manufacturers {
		id, err := repo.UpsertManufacturer(ctx, m.Name, m.Slug)
		if err != nil {
			return ref, err
		}
		ref.manufacturers[m.Slug] = id
	}
	for _, cat := range c.Categories {
		id, err := repo.UpsertCategory(ctx, cat.Name, cat.Slug)
		if err != nil {
			return ref, err
		}
		ref.categories[cat.Slug] = id
	}

	slog.Info("upserting products", slog.Int("count", len(c.Products)))

	for _, e := range c.Products {
		p, err := e.toProduct(ref)
		if err != nil {
			return ref, err
		}
		if err := repo.Upsert(ctx, p); err != nil {
			return ref, err
		}
		ref.products[p.Slug] = p.ID

		slog.Info("upserted product", slog.Int64("id", p.ID), slog.String("name", p.Name))
	}

	return ref, nil
}

func seedDiscounts(ctx context.Context, repo *postgres.DiscountRepository, c *catalog, ref ids) error {
	now := time.Now().UTC().Truncate(time.Second)

	for _, e := range c.Discounts {
		d, err := e.toDiscount(ref, now)
		if err != nil {
			return err
		}
		id, err := repo.Upsert(ctx, d)
		if err != nil {
			return err
		}

		slog.Info("upserted discount",
			slog.Int64("id", id),
			slog.String("name", d.Name),
			slog.Bool("additional", d.IsAdditional),
		)
	}

	return nil
}

func seedRules(ctx context.Context, repo *postgres.RuleRepository, c *catalog) error {
	for _, e := range c.Rules {
		r, err := e.toRule()
		if err != nil {
			return err
		}
		if err := repo.Upsert(ctx, r); err != nil {
			return err
		}

		slog.Info("upserted status rule",
			slog.String("status", string(r.Status)),
			slog.Int("days_after", r.DaysAfter),
			slog.Bool("immediate", r.Immediate),
		)
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding staff API key")

	if err := repo.Upsert(ctx, &auth.APIKey{
		ID:      "staff",
		KeyHash: auth.Hash([]byte(pepper), apiKey),
		Name:    "Default staff key",
		Scopes:  []string{auth.ScopeOrdersWrite},
	}); err != nil {
		return errors.Wrap(err, "upsert staff API key")
	}

	slog.Info("upserted API key", slog.String("id", "staff"), slog.String("name", "Default staff key"))

	return nil
}
