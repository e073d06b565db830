package handler

import (
	"encoding/json"
	"net/http"

	"github.com/contactbook-api/internal/application/spamcheck"
	"github.com/contactbook-api/internal/pkg/validate"
)

// SpamHandler handles the message classification endpoint.
type SpamHandler struct {
	checker *spamcheck.Checker
}

func NewSpamHandler(checker *spamcheck.Checker) *SpamHandler {
	return &SpamHandler{checker: checker}
}

func (h *SpamHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req spamcheck.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.checker.Check(req.Message))
}
