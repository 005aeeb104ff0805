package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hostel/internal/core"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("malformed request")

// parseMonth reads the month query parameter, defaulting to the month of now.
func parseMonth(r *http.Request, now time.Time) (core.MonthKey, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.MonthOf(now), nil
	}
	return core.ParseMonthKey(v)
}

// decodeJSON reads a single JSON document into dst. Value-level validation
// errors keep their core sentinel; everything else wraps errBadRequest.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if core.IsValidation(err) || errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

// sanitizeInput removes control characters except tab and newlines, then trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type roomRequest struct {
	Floor        int    `json:"floor"`
	RoomNumber   string `json:"roomNumber"`
	TotalBeds    int    `json:"totalBeds"`
	OccupiedBeds int    `json:"occupiedBeds"`
}

func (req roomRequest) room(id string) core.Room {
	return core.Room{
		ID:           id,
		Floor:        req.Floor,
		RoomNumber:   sanitizeInput(req.RoomNumber),
		TotalBeds:    req.TotalBeds,
		OccupiedBeds: req.OccupiedBeds,
	}
}

type tenantRequest struct {
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Email      string     `json:"email"`
	RoomID     string     `json:"roomId"`
	JoinDate   core.Date  `json:"joinDate"`
	MonthlyFee core.Money `json:"monthlyFee"`
}

func (req tenantRequest) tenant(id string) core.Tenant {
	return core.Tenant{
		ID:         id,
		Name:       sanitizeInput(req.Name),
		Phone:      sanitizeInput(req.Phone),
		Email:      sanitizeInput(req.Email),
		RoomID:     strings.TrimSpace(req.RoomID),
		JoinDate:   req.JoinDate,
		MonthlyFee: req.MonthlyFee,
	}
}

type paymentRequest struct {
	TenantID string     `json:"tenantId"`
	Amount   core.Money `json:"amount"`
	Month    string     `json:"month"`
	Status   string     `json:"status"`
	DueDate  core.Date  `json:"dueDate"`
	PaidDate core.Date  `json:"paidDate"`
	Remarks  string     `json:"remarks"`
}

// payment converts the request; an empty status is left for the service to
// default.
func (req paymentRequest) payment(id string) (core.Payment, error) {
	month, err := core.ParseMonthKey(req.Month)
	if err != nil {
		return core.Payment{}, err
	}
	p := core.Payment{
		ID:       id,
		TenantID: strings.TrimSpace(req.TenantID),
		Amount:   req.Amount,
		Month:    month,
		DueDate:  req.DueDate,
		PaidDate: req.PaidDate,
		Remarks:  sanitizeInput(req.Remarks),
	}
	if strings.TrimSpace(req.Status) != "" {
		if p.Status, err = core.ParseStatus(req.Status); err != nil {
			return core.Payment{}, err
		}
	}
	return p, nil
}

type statusRequest struct {
	Status string `json:"status"`
}

type remarksRequest struct {
	Remarks string `json:"remarks"`
}
