package api

import (
	"net/http"
	"time"

	"github.com/hooklinehq/hookline/audit"
	"github.com/hooklinehq/hookline/delivery"
	"github.com/hooklinehq/hookline/id"
)

func (h *Handler) listDeadLetters(w http.ResponseWriter, r *http.Request) {
	opts := delivery.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}
	if subParam := queryParam(r, "subscription_id"); subParam != "" {
		subID, err := id.ParseSubscriptionID(subParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid subscription ID")
			return
		}
		opts.SubscriptionID = subID
	}

	ds, err := h.hook.DeadLetters().List(r.Context(), opts)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ds)
}

func (h *Handler) requeueDeadLetter(w http.ResponseWriter, r *http.Request) {
	dID, err := id.ParseDeliveryID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid delivery ID")
		return
	}

	d, requeueErr := h.hook.DeadLetters().Requeue(r.Context(), dID)
	if requeueErr != nil {
		h.handleError(w, requeueErr)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) purgeDeadLetters(w http.ResponseWriter, r *http.Request) {
	beforeParam := queryParam(r, "before")
	if beforeParam == "" {
		writeError(w, http.StatusBadRequest, "before query parameter is required")
		return
	}
	cutoff, err := time.Parse(time.RFC3339, beforeParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid before timestamp")
		return
	}

	purged, purgeErr := h.hook.DeadLetters().Purge(r.Context(), cutoff)
	if purgeErr != nil {
		h.handleError(w, purgeErr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"purged": purged})
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	opts := audit.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
		Kind:   audit.Kind(queryParam(r, "kind")),
	}
	if subParam := queryParam(r, "subscription_id"); subParam != "" {
		subID, err := id.ParseSubscriptionID(subParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid subscription ID")
			return
		}
		opts.SubscriptionID = subID
	}
	if dParam := queryParam(r, "delivery_id"); dParam != "" {
		dID, err := id.ParseDeliveryID(dParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid delivery ID")
			return
		}
		opts.DeliveryID = dID
	}

	entries, err := h.hook.Store().ListEntries(r.Context(), opts)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.hook.Stats(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
