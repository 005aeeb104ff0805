package http

import (
	"net/http"
	"strconv"

	"hostel/internal/analytics"
	"hostel/internal/core"
	"hostel/internal/export"
	"hostel/internal/log"
)

// monthOptionCount is how many months the payment sheet offers.
const monthOptionCount = 12

type paymentSheetResponse struct {
	Month  core.MonthKey           `json:"month"`
	Months []analytics.MonthOption `json:"months"`
	Rows   []analytics.SheetRow    `json:"rows"`
}

func (s *Server) handlePaymentSheet(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	month, err := parseMonth(r, now)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentSheetResponse{
		Month:  month,
		Months: analytics.MonthOptions(core.MonthOf(now), monthOptionCount),
		Rows:   nonNil(analytics.PaymentSheet(snap, month)),
	})
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	p, err := req.payment("")
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.svc.CreatePayment(r.Context(), p)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	p, err := req.payment(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := s.svc.UpdatePayment(r.Context(), p); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeletePayment(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportPayments(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r, s.now())
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	doc := export.PaymentsCSV(snap, month)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(month)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func pathMonth(r *http.Request) (core.MonthKey, error) {
	return core.ParseMonthKey(r.PathValue("month"))
}

func (s *Server) handleResolvePayment(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		s.writeError(w, r, log.OpResolve, err)
		return
	}
	res, err := s.svc.ResolvePayment(r.Context(), r.PathValue("id"), month)
	if err != nil {
		s.writeError(w, r, log.OpResolve, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	status, err := core.ParseStatus(req.Status)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	p, err := s.svc.SetPaymentStatus(r.Context(), r.PathValue("id"), month, status)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSetPaymentRemarks(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var req remarksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	p, err := s.svc.SetPaymentRemarks(r.Context(), r.PathValue("id"), month, sanitizeInput(req.Remarks))
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
