package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"adserver/internal/adapter/usecase"
	"adserver/internal/core/domain"
	"adserver/internal/core/port"
)

// decisionRequest is the POST /api/v1/decision body. Placements carry the
// page slots; the first placement with a supported ad type wins. Geo and
// proxy annotations come from headers, not the body.
type decisionRequest struct {
	Publisher  string      `json:"publisher"`
	Placements []placement `json:"placements"`
	URL        string      `json:"url"`

	Keywords      []string `json:"keywords,omitempty"`
	Topics        []string `json:"topics,omitempty"`
	CampaignTypes []string `json:"campaign_types,omitempty"`

	// NicheScore is the page's niche-similarity score from the external
	// classifier, passed through by the embedding client.
	NicheScore float64 `json:"niche_score,omitempty"`

	// ForceAd and ForceCampaign are debug overrides.
	ForceAd       string `json:"force_ad,omitempty"`
	ForceCampaign string `json:"force_campaign,omitempty"`
}

type placement struct {
	DivID  string `json:"div_id"`
	AdType string `json:"ad_type"`
}

// handleDecision runs the ad decision pipeline for one request. On success
// it returns the decision JSON. When no flight is eligible it returns an
// empty JSON object, mirroring "no ad" to the client without an error
// status. Parsing errors produce HTTP 400; an unknown publisher HTTP 404.
func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Publisher == "" || len(req.Placements) == 0 {
		http.Error(w, "publisher and placements are required", http.StatusBadRequest)
		return
	}

	rc := &domain.RequestContext{
		PublisherSlug:     req.Publisher,
		DivID:             req.Placements[0].DivID,
		URL:               req.URL,
		Keywords:          req.Keywords,
		Topics:            req.Topics,
		EmbeddingScore:    req.NicheScore,
		ForceAdSlug:       req.ForceAd,
		ForceCampaignSlug: req.ForceCampaign,
	}
	for _, p := range req.Placements {
		if p.AdType != "" {
			rc.AdTypes = append(rc.AdTypes, p.AdType)
		}
	}
	for _, ct := range req.CampaignTypes {
		rc.CampaignTypes = append(rc.CampaignTypes, domain.CampaignType(ct))
	}
	annotate(rc, r)

	decision, err := h.svc.Decide(r.Context(), rc)
	if err != nil {
		switch {
		case errors.Is(err, port.ErrPublisherNotFound):
			http.Error(w, "unknown publisher", http.StatusNotFound)
		case errors.Is(err, usecase.ErrNoInventory):
			http.Error(w, "not ready", http.StatusServiceUnavailable)
		default:
			h.logger.Error("decision error", slog.Any("error", err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if decision == nil {
		// No eligible flight. The client treats {} as "render nothing".
		w.Write([]byte("{}\n"))
		return
	}
	if err = json.NewEncoder(w).Encode(decision); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}
