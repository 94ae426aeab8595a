package http

import (
	"encoding/json"
	"net/http"

	"fundcountdown/internal/services"
)

// costedRequest is the body of expense and quotation writes. unit_price may
// be a money object, a string or a number.
type costedRequest struct {
	services.CostedInput
	UnitPrice json.RawMessage `json:"unit_price"`
}

func decodeCosted(w http.ResponseWriter, r *http.Request) (services.CostedInput, error) {
	var req costedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return services.CostedInput{}, err
	}
	price, err := moneyValue(req.UnitPrice)
	if err != nil {
		return services.CostedInput{}, err
	}
	in := req.CostedInput
	in.Name = sanitizeInput(in.Name)
	in.Description = sanitizeInput(in.Description)
	in.UnitPrice = price
	return in, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	fundID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := decodeCosted(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.CreateExpense(r.Context(), fundID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newExpenseView(e))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.GetExpense(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := decodeCosted(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.UpdateExpense(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(e))
}

func (s *Server) handleSetUnitPrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		UnitPrice json.RawMessage `json:"unit_price"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	price, err := moneyValue(req.UnitPrice)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.SetExpenseUnitPrice(r.Context(), id, price)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(e))
}

func (s *Server) handleCreateQuotation(w http.ResponseWriter, r *http.Request) {
	expenseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := decodeCosted(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := s.svc.CreateQuotation(r.Context(), expenseID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newQuotationView(q))
}

func (s *Server) handleUpdateQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := decodeCosted(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := s.svc.UpdateQuotation(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuotationView(q))
}

func (s *Server) handleSetWinner(w http.ResponseWriter, r *http.Request) {
	expenseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		QuotationID int64 `json:"quotation_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.SetWinner(r.Context(), expenseID, req.QuotationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(e))
}
