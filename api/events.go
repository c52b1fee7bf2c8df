package api

import (
	"net/http"
	"time"

	"github.com/hooklinehq/hookline"
	"github.com/hooklinehq/hookline/event"
)

func (h *Handler) publishEvent(w http.ResponseWriter, r *http.Request) {
	var in hookline.PublishInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	enqueued, err := h.hook.Publish(r.Context(), in)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]int{"deliveries": enqueued})
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	opts := event.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
		Type:   queryParam(r, "type"),
	}
	if from := queryParam(r, "from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		opts.From = &t
	}
	if to := queryParam(r, "to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		opts.To = &t
	}

	events, err := h.hook.Store().ListEvents(r.Context(), opts)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) listEventTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.hook.Registry().List())
}
