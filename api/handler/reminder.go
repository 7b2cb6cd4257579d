package handler

import (
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/reminders/api/transport"
	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/pkg/httpcontext"
	"github.com/fastygo/reminders/repository"
	reminderUC "github.com/fastygo/reminders/usecase/reminder"
)

type ReminderHandler struct {
	baseHandler
	uc *reminderUC.UseCase
}

func NewReminderHandler(uc *reminderUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List reminders
// @Tags reminders
// @Router /api/v1/reminders [get]
func (h *ReminderHandler) ListReminders(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	filter := repository.ReminderFilter{
		Limit:  parseInt(string(args.Peek("limit")), 50),
		Offset: parseInt(string(args.Peek("offset")), 0),
	}
	if raw := string(args.Peek("client_id")); raw != "" {
		clientID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || clientID <= 0 {
			h.respondInvalid(ctx, "invalid client_id")
			return
		}
		filter.ClientID = clientID
	}
	if raw := string(args.Peek("completed")); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondInvalid(ctx, "invalid completed flag")
			return
		}
		filter.Completed = &completed
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	reminders, err := h.uc.ListReminders(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if reminders == nil {
		reminders = []domain.Reminder{}
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewPage(reminders, filter.Limit, filter.Offset, len(reminders)))
}

// @Summary Get reminder
// @Tags reminders
// @Router /api/v1/reminders/{id} [get]
func (h *ReminderHandler) GetReminder(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	reminder, err := h.uc.GetReminder(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, reminder)
}

// @Summary Create reminder
// @Tags reminders
// @Router /api/v1/reminders [post]
func (h *ReminderHandler) CreateReminder(ctx *fasthttp.RequestCtx) {
	var req transport.ReminderRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateReminder(stdCtx, toInput(req))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Update reminder schedule
// @Tags reminders
// @Router /api/v1/reminders/{id} [put]
func (h *ReminderHandler) UpdateReminder(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}
	var req transport.ReminderRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.UpdateReminder(stdCtx, id, toInput(req))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

func toInput(req transport.ReminderRequest) reminderUC.Input {
	return reminderUC.Input{
		ClientID:    req.ClientID,
		DueDate:     req.DueDate,
		DueTime:     req.DueTime,
		Frequency:   req.Frequency,
		Description: req.Description,
		Source:      req.Source,
	}
}
