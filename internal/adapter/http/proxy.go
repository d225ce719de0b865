package httpadapter

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"adserver/internal/core/domain"
)

// viewPixel is the 1x1 transparent SVG served by the view endpoint.
const viewPixel = `<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"/>`

// handleClick validates and bills a click, then redirects to the
// advertiser's landing page. The redirect happens whether or not the click
// billed; only the offer id's validity gates it. Malformed ids are 400,
// everything else is a 302.
func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request) {
	offerID, err := uuid.Parse(chi.URLParam(r, "offer_id"))
	if err != nil {
		http.Error(w, "invalid offer id", http.StatusBadRequest)
		return
	}

	rc := &domain.RequestContext{}
	annotate(rc, r)

	result, err := h.svc.ProcessClick(r.Context(), offerID, rc)
	if err != nil {
		h.logger.Error("click error", slog.Any("error", err))
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}

// handleView validates and bills a view, then serves the tracking pixel.
// Like clicks, the pixel is served regardless of the billing outcome.
func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	offerID, err := uuid.Parse(chi.URLParam(r, "offer_id"))
	if err != nil {
		http.Error(w, "invalid offer id", http.StatusBadRequest)
		return
	}

	rc := &domain.RequestContext{}
	annotate(rc, r)

	if _, err = h.svc.ProcessView(r.Context(), offerID, rc); err != nil {
		h.logger.Error("view error", slog.Any("error", err))
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Write([]byte(viewPixel))
}
