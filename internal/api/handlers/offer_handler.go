package handlers

import (
	"errors"
	"net/http"

	"github.com/taskping/taskping/internal/dates"
	"github.com/taskping/taskping/internal/handshake"
)

type OpenOfferRequestBody struct {
	RequesterID string `json:"requester_id"`
	TargetID    string `json:"target_id"`
	Name        string `json:"name"`
	DueDate     string `json:"due_date"`
}

type OfferResponseRequestBody struct {
	ResponderID string `json:"responder_id"`
	Accept      bool   `json:"accept"`
}

type OfferHandler struct {
	offers *handshake.Manager
}

func NewOfferHandler(offers *handshake.Manager) *OfferHandler {
	return &OfferHandler{offers: offers}
}

// OpenOffer starts a handshake: the target is prompted to accept or
// decline the proposed task before the timeout lapses.
func (h *OfferHandler) OpenOffer(w http.ResponseWriter, r *http.Request) {
	var reqBody OpenOfferRequestBody
	if err := decodeJSON(r, &reqBody); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if reqBody.RequesterID == "" || reqBody.TargetID == "" {
		writeError(w, http.StatusBadRequest, "requester_id and target_id are required")
		return
	}

	offer, err := h.offers.Open(r.Context(), reqBody.RequesterID, reqBody.TargetID, reqBody.Name, reqBody.DueDate)
	if err != nil {
		if errors.Is(err, handshake.ErrEmptyTaskName) || errors.Is(err, dates.ErrBadDateInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Error trying to open offer: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"offer_id": offer.ID,
		"state":    offer.State,
	})
}

// RespondOffer applies the target's decision to an open offer.
func (h *OfferHandler) RespondOffer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var reqBody OfferResponseRequestBody
	if err := decodeJSON(r, &reqBody); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if reqBody.ResponderID == "" {
		writeError(w, http.StatusBadRequest, "responder_id is required")
		return
	}

	state, err := h.offers.Respond(r.Context(), id, reqBody.ResponderID, reqBody.Accept)
	if err != nil {
		switch {
		case errors.Is(err, handshake.ErrNoSuchOffer):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, handshake.ErrNotTarget):
			writeError(w, http.StatusForbidden, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Error trying to respond to offer: "+err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"offer_id": id,
		"state":    state,
	})
}
