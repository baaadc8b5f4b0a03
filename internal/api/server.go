package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/repository"
	"github.com/Kerhoff/liora/internal/service"
)

// Backend is the application layer the HTTP API exposes.
type Backend interface {
	Chat(ctx context.Context, req service.ChatRequest) (*service.ChatResponse, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id string, edit service.ProfileEdit) (*models.Profile, error)
	GetFamily(ctx context.Context, id string) (*models.Family, error)
	GetFamilyByCode(ctx context.Context, code string) (*models.Family, error)
	GetFamilyMembers(ctx context.Context, familyID string) ([]models.Profile, error)
	ListSchedules(ctx context.Context, familyID string, filters repository.ScheduleFilters) ([]*models.ScheduleEntry, error)
	CreateSchedule(ctx context.Context, in service.ScheduleInput) (*models.ScheduleEntry, error)
	UpdateSchedule(ctx context.Context, id string, patch service.SchedulePatch) (*models.ScheduleEntry, error)
	ListVitals(ctx context.Context, userID string, limit int) ([]*models.Vital, error)
	UserDashboard(ctx context.Context, userID string) (*models.UserDashboard, error)
	ListInventory(ctx context.Context, userID string) ([]*models.InventoryItem, error)
	AddInventoryItem(ctx context.Context, in service.InventoryInput) (*models.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, id string, in service.InventoryInput) (*models.InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id string) error
}

// Server provides the HTTP API.
type Server struct {
	svc     Backend
	metrics http.Handler
	logger  *logrus.Logger
	mux     *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
// metrics may be nil, in which case /metrics is not served.
func NewServer(svc Backend, metrics http.Handler, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, metrics: metrics, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// Chat
	s.mux.HandleFunc("POST /chat", s.handleChat)

	// API – Profiles
	s.mux.HandleFunc("GET /api/profile/{id}", s.handleGetProfile)
	s.mux.HandleFunc("PUT /api/profile/{id}", s.handleUpdateProfile)

	// API – Families. /code/{code} and /{id}/members overlap as patterns, so
	// two-segment paths share one handler.
	s.mux.HandleFunc("GET /api/family/{id}", s.handleGetFamily)
	s.mux.HandleFunc("GET /api/family/{first}/{second}", s.handleFamilySubresource)

	// Schedules
	s.mux.HandleFunc("GET /schedules/{family_id}", s.handleGetSchedules)
	s.mux.HandleFunc("POST /schedules", s.handleCreateSchedule)
	s.mux.HandleFunc("PATCH /schedules/{id}", s.handleUpdateSchedule)

	// API – Vitals
	s.mux.HandleFunc("GET /api/vitals/{user_id}", s.handleGetVitals)

	// API – Dashboard
	s.mux.HandleFunc("GET /api/dashboard/user/{user_id}", s.handleUserDashboard)

	// Kitchen
	s.mux.HandleFunc("GET /kitchen/inventory/{user_id}", s.handleGetInventory)
	s.mux.HandleFunc("POST /kitchen/inventory", s.handleAddInventoryItem)
	s.mux.HandleFunc("PUT /kitchen/inventory/{id}", s.handleUpdateInventoryItem)
	s.mux.HandleFunc("DELETE /kitchen/inventory/{id}", s.handleDeleteInventoryItem)

	// Operations
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to status codes. Unexpected
// errors are logged and reported as 500 with the generic message.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		s.respondError(w, http.StatusNotFound, "profile not found")
	case errors.Is(err, service.ErrFamilyNotFound):
		s.respondError(w, http.StatusNotFound, "family not found")
	case errors.Is(err, service.ErrScheduleNotFound):
		s.respondError(w, http.StatusNotFound, "schedule not found")
	case errors.Is(err, service.ErrInventoryItemNotFound):
		s.respondError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, service.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.WithError(err).Error(message)
		s.respondError(w, http.StatusInternalServerError, message)
	}
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil || r.Body == http.NoBody {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathUUID reads the named path value and checks that it is a UUID. It
// writes a 400 response and returns false otherwise.
func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := r.PathValue(name)
	if _, err := uuid.Parse(raw); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s format", strings.ReplaceAll(name, "_", " ")))
		return "", false
	}
	return raw, true
}

// queryLimit reads the optional limit query parameter.
func queryLimit(r *http.Request) int {
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 {
			return v
		}
	}
	return 0
}

// ---------------------------------------------------------------------------
// Chat
// ---------------------------------------------------------------------------

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req service.ChatRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if strings.TrimSpace(req.Message) == "" && len(req.Attachments) == 0 {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id format")
		return
	}

	resp, err := s.svc.Chat(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err, "failed to process message")
		return
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// Profiles
// ---------------------------------------------------------------------------

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	p, err := s.svc.GetProfile(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "failed to get profile")
		return
	}

	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	var edit service.ProfileEdit
	if ok, msg := s.decodeJSON(r, &edit); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := s.svc.UpdateProfile(r.Context(), id, edit)
	if err != nil {
		s.respondServiceError(w, err, "failed to update profile")
		return
	}

	s.respondJSON(w, http.StatusOK, p)
}

// ---------------------------------------------------------------------------
// Families
// ---------------------------------------------------------------------------

func (s *Server) handleGetFamily(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	family, err := s.svc.GetFamily(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "failed to get family")
		return
	}

	s.respondJSON(w, http.StatusOK, family)
}

func (s *Server) handleFamilySubresource(w http.ResponseWriter, r *http.Request) {
	first, second := r.PathValue("first"), r.PathValue("second")
	switch {
	case first == "code":
		s.handleGetFamilyByCode(w, r, second)
	case second == "members":
		s.handleGetFamilyMembers(w, r, first)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleGetFamilyByCode(w http.ResponseWriter, r *http.Request, code string) {
	family, err := s.svc.GetFamilyByCode(r.Context(), code)
	if err != nil {
		s.respondServiceError(w, err, "failed to get family")
		return
	}

	s.respondJSON(w, http.StatusOK, family)
}

func (s *Server) handleGetFamilyMembers(w http.ResponseWriter, r *http.Request, familyID string) {
	// Placeholder ids from clients that have not joined a family yet get an
	// empty list rather than an error.
	if _, err := uuid.Parse(familyID); err != nil {
		s.respondJSON(w, http.StatusOK, []models.Profile{})
		return
	}

	members, err := s.svc.GetFamilyMembers(r.Context(), familyID)
	if err != nil {
		s.respondServiceError(w, err, "failed to get family members")
		return
	}

	s.respondJSON(w, http.StatusOK, members)
}

// ---------------------------------------------------------------------------
// Schedules
// ---------------------------------------------------------------------------

func (s *Server) handleGetSchedules(w http.ResponseWriter, r *http.Request) {
	familyID, ok := s.pathUUID(w, r, "family_id")
	if !ok {
		return
	}

	q := r.URL.Query()
	filters := repository.ScheduleFilters{Limit: queryLimit(r)}
	if date := q.Get("date"); date != "" {
		filters.Date = &date
	}
	if status := q.Get("status"); status != "" {
		st := models.ScheduleStatus(status)
		filters.Status = &st
	}

	entries, err := s.svc.ListSchedules(r.Context(), familyID, filters)
	if err != nil {
		s.respondServiceError(w, err, "failed to get schedules")
		return
	}

	s.respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var in service.ScheduleInput
	if ok, msg := s.decodeJSON(r, &in); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if _, err := uuid.Parse(in.FamilyID); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid family id format")
		return
	}

	entry, err := s.svc.CreateSchedule(r.Context(), in)
	if err != nil {
		s.respondServiceError(w, err, "failed to create schedule")
		return
	}

	s.respondJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	var patch service.SchedulePatch
	if ok, msg := s.decodeJSON(r, &patch); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	entry, err := s.svc.UpdateSchedule(r.Context(), id, patch)
	if err != nil {
		s.respondServiceError(w, err, "failed to update schedule")
		return
	}

	s.respondJSON(w, http.StatusOK, entry)
}

// ---------------------------------------------------------------------------
// Vitals
// ---------------------------------------------------------------------------

func (s *Server) handleGetVitals(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathUUID(w, r, "user_id")
	if !ok {
		return
	}

	vitals, err := s.svc.ListVitals(r.Context(), userID, queryLimit(r))
	if err != nil {
		s.respondServiceError(w, err, "failed to get vitals")
		return
	}
	if vitals == nil {
		vitals = []*models.Vital{}
	}

	s.respondJSON(w, http.StatusOK, vitals)
}

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

func (s *Server) handleUserDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathUUID(w, r, "user_id")
	if !ok {
		return
	}

	dash, err := s.svc.UserDashboard(r.Context(), userID)
	if err != nil {
		s.respondServiceError(w, err, "failed to get dashboard")
		return
	}

	s.respondJSON(w, http.StatusOK, dash)
}

// ---------------------------------------------------------------------------
// Kitchen
// ---------------------------------------------------------------------------

func (s *Server) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathUUID(w, r, "user_id")
	if !ok {
		return
	}

	items, err := s.svc.ListInventory(r.Context(), userID)
	if err != nil {
		s.respondServiceError(w, err, "failed to get inventory")
		return
	}

	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleAddInventoryItem(w http.ResponseWriter, r *http.Request) {
	var in service.InventoryInput
	if ok, msg := s.decodeJSON(r, &in); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if _, err := uuid.Parse(in.UserID); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id format")
		return
	}

	item, err := s.svc.AddInventoryItem(r.Context(), in)
	if err != nil {
		s.respondServiceError(w, err, "failed to create item")
		return
	}

	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	var in service.InventoryInput
	if ok, msg := s.decodeJSON(r, &in); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.svc.UpdateInventoryItem(r.Context(), id, in)
	if err != nil {
		s.respondServiceError(w, err, "failed to update item")
		return
	}

	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := s.svc.DeleteInventoryItem(r.Context(), id); err != nil {
		s.respondServiceError(w, err, "failed to delete item")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Item deleted"})
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
