package transport

import (
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"woodstore/pkg/domain/model"
	"woodstore/pkg/domain/service"
)

const relayAllowedHeaders = "authorization, x-client-info, apikey, content-type"

type linkResponse struct {
	Link string `json:"link"`
}

type relayResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) enquiryLink(w http.ResponseWriter, r *http.Request) {
	var enquiry model.Enquiry
	if err := decodeJSON(r, &enquiry); err != nil {
		writeError(w, err)
		return
	}
	link, err := h.services.Leads.EnquiryLink(enquiry)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{Link: link})
}

func (h *Handler) contactLink(w http.ResponseWriter, r *http.Request) {
	var contact model.Contact
	if err := decodeJSON(r, &contact); err != nil {
		writeError(w, err)
		return
	}
	link, err := h.services.Leads.ContactLink(contact)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{Link: link})
}

func (h *Handler) greetingLink(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, linkResponse{Link: h.services.Leads.GreetingLink()})
}

// sendEnquiry relays an enquiry by email. It is called cross-origin from the
// public site, so it answers CORS preflight itself.
func (h *Handler) sendEnquiry(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", relayAllowedHeaders)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var enquiry model.Enquiry
	if err := decodeJSON(r, &enquiry); err != nil {
		writeJSON(w, http.StatusBadRequest, relayResponse{Error: "malformed JSON body"})
		return
	}

	err := h.services.Leads.RelayEnquiry(r.Context(), enquiry)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, relayResponse{Success: true})
	case errors.Is(err, service.ErrEnquiryIncomplete):
		writeJSON(w, http.StatusBadRequest, relayResponse{Error: "Name, phone, and product are required"})
	default:
		log.WithError(err).Error("failed to relay enquiry")
		writeJSON(w, http.StatusInternalServerError, relayResponse{Error: errors.Cause(err).Error()})
	}
}
