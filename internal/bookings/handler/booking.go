package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"slotwise/internal/availability"
	"slotwise/internal/bookings/service"
	apperrors "slotwise/pkg/errors"
	httputil "slotwise/pkg/http"
	"slotwise/pkg/logger"
	"slotwise/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// IntentPublisher hands committed side-effect intents to the dispatcher
// pipeline. Publish failures never undo a committed transition; the worst
// case is a delayed side effect, handled by the DLQ.
type IntentPublisher interface {
	PublishIntents(ctx context.Context, intents []model.Intent) error
}

type BookingHandler struct {
	service      service.BookingService
	availability availability.Service
	publisher    IntentPublisher
	log          *logger.Logger
}

func NewBookingHandler(
	service service.BookingService,
	availability availability.Service,
	publisher IntentPublisher,
	log *logger.Logger,
) *BookingHandler {
	return &BookingHandler{
		service:      service,
		availability: availability,
		publisher:    publisher,
		log:          log,
	}
}

// slotView is the wire shape of one free slot.
type slotView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingCreate
	if !h.decodeBody(w, r, &req, "Create") {
		return
	}

	booking, intents, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	h.dispatchIntents(r.Context(), intents)

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	partyID := r.URL.Query().Get("party_id")

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	bookings, total, err := h.service.ListByParty(r.Context(), partyID, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) ChangeStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.StatusChange
	if !h.decodeBody(w, r, &req, "ChangeStatus") {
		return
	}

	booking, intents, err := h.service.ChangeStatus(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "ChangeStatus", err)
		return
	}

	h.dispatchIntents(r.Context(), intents)

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "ChangeStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.Reschedule
	if !h.decodeBody(w, r, &req, "Reschedule") {
		return
	}

	booking, intents, err := h.service.Reschedule(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	h.dispatchIntents(r.Context(), intents)

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Reschedule", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	providerID := query.Get("provider_id")
	date := query.Get("date")

	slots, err := h.availability.FreeSlots(r.Context(), providerID, date)
	if err != nil {
		h.writeError(w, "GetAvailability", err)
		return
	}

	views := make([]slotView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, slotView{
			Start: model.FormatClock(slot.Start),
			End:   model.FormatClock(slot.End),
		})
	}

	if err := httputil.WriteSuccess(w, views); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAvailability", "operation", "WriteSuccess", "error", err)
	}
}

// decodeBody decodes a closed request struct, rejecting unknown fields.
func (h *BookingHandler) decodeBody(w http.ResponseWriter, r *http.Request, v any, handlerName string) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body: "+err.Error())); writeErr != nil {
			h.log.Error("failed to write error response", "handler", handlerName, "operation", "WriteError", "error", writeErr)
		}
		return false
	}
	return true
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "operation", "WriteError", "error", writeErr)
	}
}

// dispatchIntents publishes post-commit side effects. The transition has
// already been persisted, so a publish failure is logged, never returned.
func (h *BookingHandler) dispatchIntents(ctx context.Context, intents []model.Intent) {
	if len(intents) == 0 {
		return
	}
	if err := h.publisher.PublishIntents(ctx, intents); err != nil {
		h.log.Error("failed to publish side-effect intents",
			"booking_id", intents[0].BookingID,
			"count", len(intents),
			"error", err,
		)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.List)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.PATCH("/api/v1/bookings/id/:id/status", h.ChangeStatus)
	router.PATCH("/api/v1/bookings/id/:id/reschedule", h.Reschedule)
	router.GET("/api/v1/availability", h.GetAvailability)
}
