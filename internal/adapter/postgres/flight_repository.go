package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"adserver/internal/core/domain"
	"adserver/internal/core/port"
)

// FlightRepository implements port.FlightRepository using pgxpool.
type FlightRepository struct {
	pool *pgxpool.Pool
}

func NewFlightRepository(pool *pgxpool.Pool) *FlightRepository {
	return &FlightRepository{pool: pool}
}

// ActiveFlights loads live flights within their date range along with
// their campaign and live advertisements. Flights whose targeting or cap
// JSON fails to parse are skipped (fail closed for that flight), never the
// whole query.
func (r *FlightRepository) ActiveFlights(ctx context.Context) ([]*domain.Flight, error) {
	query := `
        SELECT
            f.id, f.slug, f.name, f.live, f.hard_stop,
            f.start_date, f.end_date,
            f.cpc, f.cpm, f.sold_clicks, f.sold_impressions,
            f.total_clicks, f.total_views,
            f.pacing_interval_seconds, f.priority_multiplier, f.prioritize_ads_ctr,
            f.targeting, f.traffic_cap, f.traffic_fill,
            f.created_at, f.updated_at,
            c.id, c.slug, c.name, c.advertiser_slug, c.campaign_type,
            c.publisher_groups, c.exclude_publishers,
            c.created_at, c.updated_at
        FROM flights f
        JOIN campaigns c ON c.id = f.campaign_id
        WHERE f.live AND f.start_date <= now()
          AND (NOT f.hard_stop OR f.end_date + interval '1 day' >= now())`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active flights: %w", err)
	}

	type rawFlight struct {
		flight          domain.Flight
		campaign        domain.Campaign
		pacingSeconds   int64
		targetingJSON   []byte
		trafficCapJSON  []byte
		trafficFillJSON []byte
	}

	raw, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (rawFlight, error) {
		var rf rawFlight
		err := row.Scan(
			&rf.flight.ID, &rf.flight.Slug, &rf.flight.Name, &rf.flight.Live, &rf.flight.HardStop,
			&rf.flight.StartDate, &rf.flight.EndDate,
			&rf.flight.CPC, &rf.flight.CPM, &rf.flight.SoldClicks, &rf.flight.SoldImpressions,
			&rf.flight.TotalClicks, &rf.flight.TotalViews,
			&rf.pacingSeconds, &rf.flight.PriorityMultiplier, &rf.flight.PrioritizeAdsCTR,
			&rf.targetingJSON, &rf.trafficCapJSON, &rf.trafficFillJSON,
			&rf.flight.CreatedAt, &rf.flight.UpdatedAt,
			&rf.campaign.ID, &rf.campaign.Slug, &rf.campaign.Name, &rf.campaign.AdvertiserSlug, &rf.campaign.Type,
			&rf.campaign.PublisherGroups, &rf.campaign.ExcludePublishers,
			&rf.campaign.CreatedAt, &rf.campaign.UpdatedAt,
		)
		return rf, err
	})
	if err != nil {
		return nil, err
	}

	flights := make([]*domain.Flight, 0, len(raw))
	flightsByID := make(map[int64]*domain.Flight, len(raw))
	for i := range raw {
		rf := &raw[i]
		flight := rf.flight
		flight.Campaign = &rf.campaign
		flight.PacingInterval = time.Duration(rf.pacingSeconds) * time.Second

		if len(rf.targetingJSON) > 0 {
			if err := json.Unmarshal(rf.targetingJSON, &flight.Targeting); err != nil {
				// Unparseable rules exclude the flight, not the request.
				continue
			}
		}
		if len(rf.trafficCapJSON) > 0 {
			var caps domain.TrafficCap
			if err := json.Unmarshal(rf.trafficCapJSON, &caps); err != nil {
				continue
			}
			flight.TrafficCap = &caps
		}
		if len(rf.trafficFillJSON) > 0 {
			var fill domain.TrafficFill
			if err := json.Unmarshal(rf.trafficFillJSON, &fill); err == nil {
				flight.TrafficFill = &fill
			}
		}

		flights = append(flights, &flight)
		flightsByID[flight.ID] = &flight
	}

	if err := r.attachAdvertisements(ctx, flightsByID); err != nil {
		return nil, err
	}
	return flights, nil
}

func (r *FlightRepository) attachAdvertisements(ctx context.Context, flights map[int64]*domain.Flight) error {
	if len(flights) == 0 {
		return nil
	}

	query := `
        SELECT id, slug, name, flight_id, live,
               headline, content, cta, image_url, link, ad_types,
               total_views, total_clicks, created_at, updated_at
        FROM advertisements
        WHERE live`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("query advertisements: %w", err)
	}

	ads, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Advertisement, error) {
		var ad domain.Advertisement
		err := row.Scan(
			&ad.ID, &ad.Slug, &ad.Name, &ad.FlightID, &ad.Live,
			&ad.Headline, &ad.Content, &ad.CTA, &ad.ImageURL, &ad.Link, &ad.AdTypes,
			&ad.TotalViews, &ad.TotalClicks, &ad.CreatedAt, &ad.UpdatedAt,
		)
		return ad, err
	})
	if err != nil {
		return err
	}

	for i := range ads {
		if flight, ok := flights[ads[i].FlightID]; ok {
			flight.Advertisements = append(flight.Advertisements, &ads[i])
		}
	}
	return nil
}

// Publishers returns every publisher keyed by slug.
func (r *FlightRepository) Publishers(ctx context.Context) (map[string]*domain.Publisher, error) {
	query := `
        SELECT id, slug, name, groups, keywords,
               allow_paid_campaigns, allow_affiliate_campaigns,
               allow_community_campaigns, allow_house_campaigns,
               created_at, updated_at
        FROM publishers`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query publishers: %w", err)
	}

	publishers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Publisher, error) {
		var p domain.Publisher
		err := row.Scan(
			&p.ID, &p.Slug, &p.Name, &p.Groups, &p.Keywords,
			&p.AllowPaidCampaigns, &p.AllowAffiliateCampaigns,
			&p.AllowCommunityCampaigns, &p.AllowHouseCampaigns,
			&p.CreatedAt, &p.UpdatedAt,
		)
		return p, err
	})
	if err != nil {
		return nil, err
	}

	bySlug := make(map[string]*domain.Publisher, len(publishers))
	for i := range publishers {
		bySlug[publishers[i].Slug] = &publishers[i]
	}
	return bySlug, nil
}

// IncrementDelivery bumps the denormalized delivered counters with
// single-statement atomic updates, never read-then-write.
func (r *FlightRepository) IncrementDelivery(ctx context.Context, flightID, adID int64, metric port.DeliveryMetric) error {
	column := "total_views"
	if metric == port.MetricClicks {
		column = "total_clicks"
	}

	_, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE flights SET %s = %s + 1, updated_at = now() WHERE id = $1`, column, column),
		flightID)
	if err != nil {
		return fmt.Errorf("increment flight %s: %w", column, err)
	}

	_, err = r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE advertisements SET %s = %s + 1, updated_at = now() WHERE id = $1`, column, column),
		adID)
	if err != nil {
		return fmt.Errorf("increment advertisement %s: %w", column, err)
	}
	return nil
}

var _ port.FlightRepository = (*FlightRepository)(nil)
