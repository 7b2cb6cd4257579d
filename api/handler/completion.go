package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/internal/token"
	"github.com/fastygo/reminders/pkg/httpcontext"
	appLogger "github.com/fastygo/reminders/pkg/logger"
)

const (
	pageCompleted = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Reminder completed</title></head>
<body><h1>Thank you!</h1><p>The reminder has been marked as completed. You will not receive further emails about it.</p></body></html>`

	pageExpired = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Link expired</title></head>
<body><h1>Link expired</h1><p>This completion link has expired. Please use the link from a more recent reminder email.</p></body></html>`

	pageInvalid = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Invalid link</title></head>
<body><h1>Invalid link</h1><p>This completion link is not valid. Please check that you copied the whole link.</p></body></html>`

	pageError = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Something went wrong</title></head>
<body><h1>Something went wrong</h1><p>We could not record the completion. Please try the same link again later.</p></body></html>`
)

// Completer marks the reminder named by a completion token as done.
type Completer interface {
	Complete(ctx context.Context, raw string) (int64, error)
}

type CompletionHandler struct {
	baseHandler
	uc Completer
}

func NewCompletionHandler(uc Completer, adapter *httpcontext.Adapter, logger *zap.Logger) *CompletionHandler {
	return &CompletionHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Complete a reminder from an email link
// @Tags completion
// @Router /complete/{token} [get]
func (h *CompletionHandler) Complete(ctx *fasthttp.RequestCtx) {
	raw, _ := ctx.UserValue("token").(string)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	log := appLogger.WithRequestID(stdCtx, h.logger)

	id, err := h.uc.Complete(stdCtx, raw)
	switch {
	case err == nil:
		h.respondHTML(ctx, http.StatusOK, pageCompleted)
	case errors.Is(err, token.ErrExpired):
		log.Info("expired completion link")
		h.respondHTML(ctx, http.StatusBadRequest, pageExpired)
	case errors.Is(err, token.ErrInvalid):
		log.Info("invalid completion link")
		h.respondHTML(ctx, http.StatusBadRequest, pageInvalid)
	case errors.Is(err, domain.ErrReminderNotFound):
		log.Warn("completion link for unknown reminder", zap.Int64("reminder_id", id))
		h.respondHTML(ctx, http.StatusBadRequest, pageInvalid)
	default:
		log.Error("failed to complete reminder", zap.Int64("reminder_id", id), zap.Error(err))
		h.respondHTML(ctx, http.StatusInternalServerError, pageError)
	}
}
