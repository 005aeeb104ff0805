package http

import (
	"net/http"

	"hostel/internal/log"
)

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.svc.Rooms(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(rooms))
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	room, err := s.svc.AddRoom(r.Context(), req.room(""))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	room := req.room(r.PathValue("id"))
	if err := s.svc.UpdateRoom(r.Context(), room); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteRoom(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.svc.Tenants(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tenants))
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	tenant, err := s.svc.AddTenant(r.Context(), req.tenant(""))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	tenant := req.tenant(r.PathValue("id"))
	if err := s.svc.UpdateTenant(r.Context(), tenant); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTenant(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nonNil keeps empty collections encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

