package http

import (
	"encoding/json"
	"net/http"

	"fundcountdown/internal/services"
)

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	fundID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.AccountInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Description = sanitizeInput(in.Description)

	a, err := s.svc.CreateAccount(r.Context(), fundID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountView(a))
}

// handleGetAccount returns the account with its inputs and balance.
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.svc.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	balance, err := a.Balance()
	if err != nil {
		writeError(w, r, err)
		return
	}
	v := newAccountView(a)
	v.Balance = &balance
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleRecordCashInput(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		services.CashInputInput
		Value json.RawMessage `json:"value"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	value, err := moneyValue(req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in := req.CashInputInput
	in.Description = sanitizeInput(in.Description)
	in.Value = value

	ci, err := s.svc.RecordCashInput(r.Context(), accountID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCashInputView(ci))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Description = sanitizeInput(in.Description)

	c, err := s.svc.CreateCategory(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCategoryView(c))
}

// handleGetCategory returns the category with the sum of its inputs. The
// currency query parameter sets the currency of an empty sum.
func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := s.svc.CategoryAmount(r.Context(), id, r.URL.Query().Get("currency"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	v := newCategoryView(c)
	v.Amount = &amount
	writeJSON(w, http.StatusOK, v)
}
