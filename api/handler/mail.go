package handler

import (
	"net/http"
	netmail "net/mail"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/reminders/api/transport"
	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/internal/mail"
	"github.com/fastygo/reminders/pkg/httpcontext"
)

// MailHandler exposes a diagnostic send so operators can check the relay.
type MailHandler struct {
	baseHandler
	sender mail.Sender
}

func NewMailHandler(sender mail.Sender, adapter *httpcontext.Adapter, logger *zap.Logger) *MailHandler {
	return &MailHandler{
		baseHandler: newBaseHandler(adapter, logger),
		sender:      sender,
	}
}

// @Summary Send a test email
// @Tags mail
// @Router /api/v1/mail/test [post]
func (h *MailHandler) SendTest(ctx *fasthttp.RequestCtx) {
	var req transport.MailTestRequest
	if !h.decode(ctx, &req) {
		return
	}
	addr, err := netmail.ParseAddress(req.To)
	if err != nil {
		h.respondError(ctx, domain.WrapError(domain.ErrCodeInvalid, domain.ErrInvalidEmail.Message, err))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	msg := mail.Message{
		To:      addr.Address,
		Subject: "Test email from reminders",
		Text:    "This is a test email. If you received it, outgoing mail is configured correctly.",
	}
	if err := h.sender.Send(stdCtx, msg); err != nil {
		h.logger.Warn("test email failed", zap.String("to", addr.Address), zap.Error(err))
		h.respondJSON(ctx, http.StatusBadGateway, transport.NewError("MAIL_FAILED", err.Error(), nil))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"sent_to": addr.Address})
}
