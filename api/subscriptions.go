package api

import (
	"net/http"

	"github.com/hooklinehq/hookline/delivery"
	"github.com/hooklinehq/hookline/id"
	"github.com/hooklinehq/hookline/ratelimit"
	"github.com/hooklinehq/hookline/subscription"
)

// createSubscriptionResponse carries the one-time plaintext secret. It is
// never returned by any other route.
type createSubscriptionResponse struct {
	Subscription *subscription.Subscription `json:"subscription"`
	Secret       string                     `json:"secret"`
}

func (h *Handler) createSubscription(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	var in subscription.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.hook.Subscriptions().Create(r.Context(), owner, in)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSubscriptionResponse{
		Subscription: sub,
		Secret:       sub.Secret,
	})
}

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	opts := subscription.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}

	subs, err := h.hook.Subscriptions().List(r.Context(), owner, opts)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) getSubscription(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	subID, err := id.ParseSubscriptionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription ID")
		return
	}

	sub, getErr := h.hook.Subscriptions().Get(r.Context(), owner, subID)
	if getErr != nil {
		h.handleError(w, getErr)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	subID, err := id.ParseSubscriptionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription ID")
		return
	}

	var in subscription.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, updateErr := h.hook.Subscriptions().Update(r.Context(), owner, subID, in)
	if updateErr != nil {
		h.handleError(w, updateErr)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	subID, err := id.ParseSubscriptionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription ID")
		return
	}

	if deleteErr := h.hook.Subscriptions().Delete(r.Context(), owner, subID); deleteErr != nil {
		h.handleError(w, deleteErr)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rotateSecret(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	subID, err := id.ParseSubscriptionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription ID")
		return
	}

	secret, rotateErr := h.hook.Subscriptions().RotateSecret(r.Context(), owner, subID)
	if rotateErr != nil {
		h.handleError(w, rotateErr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"secret": secret})
}

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	subID, err := id.ParseSubscriptionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription ID")
		return
	}

	if limitErr := ratelimit.Check(r.Context(), h.hook.Limiter(), owner,
		ratelimit.ActionListDeliveries, ratelimit.PolicyListDeliveries); limitErr != nil {
		h.handleError(w, limitErr)
		return
	}

	// Ownership check before touching the delivery table.
	if _, getErr := h.hook.Subscriptions().Get(r.Context(), owner, subID); getErr != nil {
		h.handleError(w, getErr)
		return
	}

	opts := delivery.ListOpts{
		Offset:         queryInt(r, "offset", 0),
		Limit:          queryInt(r, "limit", 50),
		SubscriptionID: subID,
	}
	if stateParam := queryParam(r, "state"); stateParam != "" {
		state, stateErr := parseState(stateParam)
		if stateErr != nil {
			writeError(w, http.StatusBadRequest, stateErr.Error())
			return
		}
		opts.State = &state
	}

	ds, listErr := h.hook.Store().ListDeliveries(r.Context(), opts)
	if listErr != nil {
		h.handleError(w, listErr)
		return
	}

	writeJSON(w, http.StatusOK, ds)
}

func parseState(s string) (delivery.State, error) {
	switch state := delivery.State(s); state {
	case delivery.StatePending, delivery.StateDelivering, delivery.StateDelivered,
		delivery.StateFailed, delivery.StateDeadLettered:
		return state, nil
	}
	return "", &invalidStateError{value: s}
}

type invalidStateError struct {
	value string
}

func (e *invalidStateError) Error() string {
	return "invalid delivery state: " + e.value
}
