package monitor

import (
	"encoding/json"
	"net/http"

	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service, validator *validator.Validate) *Handler {
	return &Handler{
		service:   service,
		validator: validator,
	}
}

func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	token := chi.URLParam(r, "token")
	if token == "" {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "missing token")
		return
	}

	monitorID, err := h.service.RecordHeartbeat(ctx, token)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "heartbeat recorded", HeartbeatResponse{MonitorID: monitorID})
}

func (h *Handler) CronRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	token := chi.URLParam(r, "token")
	if token == "" {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "missing token")
		return
	}

	// body is optional, a bare ping counts as a successful run
	req := CronRunRequest{Status: "success"}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "")
			return
		}
	}

	ack, err := h.service.RecordCronRun(ctx, token, req.Status, req.DurationMS)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "cron run recorded", ack)
}
