package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Seed inserts demo publishers, campaigns, flights and advertisements.
// Inserts are idempotent so Seed can run on every boot of a dev stack.
func Seed(ctx context.Context, db *pgxpool.Pool) error {
	publishers := []struct {
		slug     string
		name     string
		groups   []string
		keywords []string
	}{
		{"docs-example-com", "Example Docs", []string{"docs"}, []string{"backend", "devops"}},
		{"blog-example-com", "Example Blog", []string{"blogs"}, []string{"python"}},
		{"forum-example-com", "Example Forum", nil, nil},
	}
	for i, p := range publishers {
		_, err := db.Exec(ctx, `INSERT INTO publishers (id, slug, name, groups, keywords, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,now(),now()) ON CONFLICT DO NOTHING`,
			i+1, p.slug, p.name, p.groups, p.keywords)
		if err != nil {
			return err
		}
	}

	campaigns := []struct {
		slug         string
		advertiser   string
		campaignType string
	}{
		{"acme-q3", "acme", "paid"},
		{"devtool-affiliates", "devtool", "affiliate"},
		{"oss-sponsorship", "oss-collective", "community"},
		{"house-promo", "self", "house"},
	}
	for i, c := range campaigns {
		_, err := db.Exec(ctx, `INSERT INTO campaigns (id, slug, name, advertiser_slug, campaign_type, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,now(),now()) ON CONFLICT DO NOTHING`,
			i+1, c.slug, c.slug, c.advertiser, c.campaignType)
		if err != nil {
			return err
		}
	}

	start := time.Now().AddDate(0, 0, -7)
	end := time.Now().AddDate(0, 1, 0)
	flights := []struct {
		campaignID int64
		slug       string
		cpc        float64
		cpm        float64
		soldClicks int64
		soldImpr   int64
		targeting  map[string]any
	}{
		{1, "acme-q3-us-ca", 2.50, 0, 1000, 0, map[string]any{
			"include_countries": []string{"US", "CA"},
			"include_keywords":  []string{"backend", "devops"},
		}},
		{2, "devtool-global", 1.00, 0, 500, 0, nil},
		{3, "oss-sponsorship-eu", 0, 2.00, 0, 250000, map[string]any{
			"include_regions": []string{"western-europe", "eastern-europe"},
		}},
		{4, "house-promo-run", 0, 0, 0, 1000000, nil},
	}
	for i, f := range flights {
		var targetingJSON []byte
		if f.targeting != nil {
			var err error
			if targetingJSON, err = json.Marshal(f.targeting); err != nil {
				return err
			}
		}
		_, err := db.Exec(ctx, `INSERT INTO flights
(id, campaign_id, slug, name, live, start_date, end_date, cpc, cpm, sold_clicks, sold_impressions, targeting, created_at, updated_at)
VALUES ($1,$2,$3,$4,true,$5,$6,$7,$8,$9,$10,$11,now(),now()) ON CONFLICT DO NOTHING`,
			i+1, f.campaignID, f.slug, f.slug, start, end,
			f.cpc, f.cpm, f.soldClicks, f.soldImpr, targetingJSON)
		if err != nil {
			return err
		}
	}

	adID := 0
	for flightID := 1; flightID <= len(flights); flightID++ {
		for j := 1; j <= 2; j++ {
			adID++
			slug := fmt.Sprintf("%s-ad-%d", flights[flightID-1].slug, j)
			_, err := db.Exec(ctx, `INSERT INTO advertisements
(id, flight_id, slug, name, live, headline, content, cta, link, ad_types, created_at, updated_at)
VALUES ($1,$2,$3,$4,true,$5,$6,$7,$8,$9,now(),now()) ON CONFLICT DO NOTHING`,
				adID, flightID, slug, slug,
				fmt.Sprintf("Headline %d", adID),
				"Build faster with tools developers actually like.",
				"Learn more",
				fmt.Sprintf("https://example.com/landing/%d", adID),
				[]string{"image-v1", "text-v1"})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
