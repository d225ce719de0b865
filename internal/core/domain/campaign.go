package domain

import "time"

// CampaignType determines a campaign's priority tier during ad selection.
// Paid flights are always preferred over affiliate, affiliate over community
// and community over house. The ordering is total and fixed.
type CampaignType string

const (
	PaidCampaign      CampaignType = "paid"
	AffiliateCampaign CampaignType = "affiliate"
	CommunityCampaign CampaignType = "community"
	HouseCampaign     CampaignType = "house"
)

// CampaignTypePriority lists the tiers from highest to lowest priority.
var CampaignTypePriority = []CampaignType{
	PaidCampaign,
	AffiliateCampaign,
	CommunityCampaign,
	HouseCampaign,
}

// Campaign groups flights under one advertiser.
type Campaign struct {
	ID             int64
	Slug           string
	Name           string
	AdvertiserSlug string
	Type           CampaignType

	// PublisherGroups restricts which publishers can ever serve this
	// campaign. A flight only reaches a publisher that shares at least one
	// group with the campaign. Empty means no restriction.
	PublisherGroups []string

	// ExcludePublishers removes specific publishers even when their group
	// would otherwise allow the campaign.
	ExcludePublishers []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AllowsPublisher reports whether this campaign can serve on the given
// publisher at all. This is evaluated before any flight targeting.
func (c *Campaign) AllowsPublisher(p *Publisher) bool {
	for _, excluded := range c.ExcludePublishers {
		if excluded == p.Slug {
			return false
		}
	}
	if len(c.PublisherGroups) == 0 {
		return true
	}
	for _, group := range c.PublisherGroups {
		for _, pg := range p.Groups {
			if group == pg {
				return true
			}
		}
	}
	return false
}

// Publisher is a site that serves ads. Only the fields the decision path
// needs are modelled here; account management lives elsewhere.
type Publisher struct {
	ID     int64
	Slug   string
	Name   string
	Groups []string

	// Keywords are merged into every request from this publisher for
	// keyword targeting.
	Keywords []string

	AllowPaidCampaigns      bool
	AllowAffiliateCampaigns bool
	AllowCommunityCampaigns bool
	AllowHouseCampaigns     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AllowedCampaignTypes intersects the publisher's settings with the
// requested types. An empty request means all types the publisher allows.
func (p *Publisher) AllowedCampaignTypes(requested []CampaignType) []CampaignType {
	allowed := make([]CampaignType, 0, len(CampaignTypePriority))
	for _, ct := range CampaignTypePriority {
		switch ct {
		case PaidCampaign:
			if !p.AllowPaidCampaigns {
				continue
			}
		case AffiliateCampaign:
			if !p.AllowAffiliateCampaigns {
				continue
			}
		case CommunityCampaign:
			if !p.AllowCommunityCampaigns {
				continue
			}
		case HouseCampaign:
			if !p.AllowHouseCampaigns {
				continue
			}
		}
		if len(requested) > 0 && !containsCampaignType(requested, ct) {
			continue
		}
		allowed = append(allowed, ct)
	}
	return allowed
}

func containsCampaignType(types []CampaignType, ct CampaignType) bool {
	for _, t := range types {
		if t == ct {
			return true
		}
	}
	return false
}
