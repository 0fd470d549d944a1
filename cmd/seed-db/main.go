package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-shop/internal/storage/postgres"
)

type seedFile struct {
	Items   []itemJSON   `json:"items"`
	Coupons []couponJSON `json:"coupons"`
}

type itemJSON struct {
	Title         string              `json:"title"`
	Price         decimal.Decimal     `json:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	Category      string              `json:"category"`
	Label         string              `json:"label"`
	Slug          string              `json:"slug"`
	Description   string              `json:"description"`
	Image         string              `json:"image"`
	Variations    map[string][]string `json:"variations"`
}

type couponJSON struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

const (
	upsertItemSQL = `INSERT INTO items (title, price, discount_price, category, label, slug, description, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (slug) DO UPDATE SET
			title = EXCLUDED.title, price = EXCLUDED.price, discount_price = EXCLUDED.discount_price,
			category = EXCLUDED.category, label = EXCLUDED.label,
			description = EXCLUDED.description, image = EXCLUDED.image
		RETURNING id`

	upsertVariationSQL = `INSERT INTO variations (item_id, name) VALUES ($1, $2)
		ON CONFLICT (item_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	upsertItemVariationSQL = `INSERT INTO item_variations (variation_id, value) VALUES ($1, $2)
		ON CONFLICT (variation_id, value) DO NOTHING`

	upsertCouponSQL = `INSERT INTO coupons (code, amount) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET amount = EXCLUDED.amount`

	upsertUserSQL = `INSERT INTO users (id, email) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email`

	upsertProfileSQL = `INSERT INTO user_profiles (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, user_id, name, scopes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash, user_id = EXCLUDED.user_id`
)

func main() {
	var (
		databaseURL  string
		seedPath     string
		apiKey       string
		apiKeyPepper string
		userID       string
		email        string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or KART_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or KART_API_KEY_PEPPER env)")
	flag.StringVar(&userID, "user-id", "00000000-0000-4000-8000-000000000001", "id of the demo user owning the API key")
	flag.StringVar(&email, "email", "demo@example.com", "email of the demo user")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("KART_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or KART_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("KART_API_KEY_PEPPER")
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		slog.Error("invalid --user-id", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath, uid, email, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath string, userID uuid.UUID, email, apiKey, pepper string) error {
	data, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed file")
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

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if err := seedItems(ctx, tx, seed.Items); err != nil {
			return errors.Wrap(err, "seed items")
		}
		if err := seedCoupons(ctx, tx, seed.Coupons); err != nil {
			return errors.Wrap(err, "seed coupons")
		}
		return errors.Wrap(seedUser(ctx, tx, userID, email, apiKey, pepper), "seed user")
	})
}

func seedItems(ctx context.Context, tx pgx.Tx, items []itemJSON) error {
	slog.Info("upserting items", slog.Int("count", len(items)))

	for _, it := range items {
		var itemID int64
		if err := tx.QueryRow(ctx, upsertItemSQL,
			it.Title, it.Price, it.DiscountPrice, it.Category, it.Label, it.Slug, it.Description, it.Image,
		).Scan(&itemID); err != nil {
			return errors.Wrapf(err, "upsert item %s", it.Slug)
		}

		for name, values := range it.Variations {
			var variationID int64
			if err := tx.QueryRow(ctx, upsertVariationSQL, itemID, name).Scan(&variationID); err != nil {
				return errors.Wrapf(err, "upsert variation %s of %s", name, it.Slug)
			}
			for _, v := range values {
				if _, err := tx.Exec(ctx, upsertItemVariationSQL, variationID, v); err != nil {
					return errors.Wrapf(err, "upsert value %s of %s", v, name)
				}
			}
		}

		slog.Info("upserted item", slog.Int64("id", itemID), slog.String("slug", it.Slug))
	}
	return nil
}

func seedCoupons(ctx context.Context, tx pgx.Tx, coupons []couponJSON) error {
	for _, c := range coupons {
		if _, err := tx.Exec(ctx, upsertCouponSQL, c.Code, c.Amount); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("amount", c.Amount.StringFixed(2)))
	}
	return nil
}

func seedUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID, email, apiKey, pepper string) error {
	if _, err := tx.Exec(ctx, upsertUserSQL, userID, email); err != nil {
		return errors.Wrap(err, "upsert user")
	}
	if _, err := tx.Exec(ctx, upsertProfileSQL, userID); err != nil {
		return errors.Wrap(err, "upsert profile")
	}

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := tx.Exec(ctx, upsertAPIKeySQL, "default", keyHash, userID, "Default demo key", []string{"shop"}); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted demo user", slog.String("id", userID.String()), slog.String("email", email))
	return nil
}
