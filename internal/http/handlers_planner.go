package http

import (
	"encoding/json"
	"net/http"

	"cashplan/internal/core"
	"cashplan/internal/planner"
	"cashplan/internal/services"
)

type breakdownRequest struct {
	Amount         json.Number  `json:"amount"`
	ReserveCushion *json.Number `json:"reserve_cushion"`
	DueSoonDays    *int         `json:"due_soon_days"`
	Year           int          `json:"year"`
	Month          int          `json:"month"`
}

func (req breakdownRequest) toService() (services.BreakdownRequest, error) {
	if req.Amount == "" {
		return services.BreakdownRequest{}, &core.ValidationError{Field: "amount", Reason: "is required"}
	}
	amount, err := parseMoney("amount", req.Amount)
	if err != nil {
		return services.BreakdownRequest{}, err
	}
	out := services.BreakdownRequest{Amount: amount, Year: req.Year, Month: req.Month}
	if req.ReserveCushion != nil {
		cushion, err := parseMoney("reserve_cushion", *req.ReserveCushion)
		if err != nil {
			return services.BreakdownRequest{}, err
		}
		out.ReserveCushion = &cushion
	}
	if req.DueSoonDays != nil {
		if *req.DueSoonDays < 1 || *req.DueSoonDays > 60 {
			return services.BreakdownRequest{}, &core.ValidationError{Field: "due_soon_days", Reason: "must be between 1 and 60"}
		}
		out.DueSoonDays = *req.DueSoonDays
	}
	return out, nil
}

// handleBreakdown allocates one inflow across bills, budgets and the
// emergency fund.
func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	var req breakdownRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toService()
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.planner.Breakdown(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(planner.NewAllocationView(res)).Write(w)
}

// handleBudgetVsActual reports eligible categories against their budgets for
// the required year and month.
func (s *Server) handleBudgetVsActual(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := requiredQueryInt(q, "year")
	if err != nil {
		writeError(w, r, err)
		return
	}
	month, err := requiredQueryInt(q, "month")
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Zero would select the current month in the service.
	if year == 0 {
		writeError(w, r, &core.ValidationError{Field: "year", Reason: "must be between 2000 and 2100"})
		return
	}
	if month == 0 {
		writeError(w, r, &core.ValidationError{Field: "month", Reason: "must be between 1 and 12"})
		return
	}
	rows, err := s.planner.BudgetVsActual(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(planner.NewBudgetVsActualViews(rows)).Write(w)
}

func (s *Server) handleEmergencyFund(w http.ResponseWriter, r *http.Request) {
	ef, err := s.planner.EmergencyFund(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(planner.NewEmergencyFundView(ef)).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}
