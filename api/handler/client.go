package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/reminders/api/transport"
	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/pkg/httpcontext"
	"github.com/fastygo/reminders/repository"
	clientUC "github.com/fastygo/reminders/usecase/client"
)

type ClientHandler struct {
	baseHandler
	uc *clientUC.UseCase
}

func NewClientHandler(uc *clientUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List clients
// @Tags clients
// @Router /api/v1/clients [get]
func (h *ClientHandler) ListClients(ctx *fasthttp.RequestCtx) {
	filter := repository.ClientFilter{
		Limit:  parseInt(string(ctx.QueryArgs().Peek("limit")), 50),
		Offset: parseInt(string(ctx.QueryArgs().Peek("offset")), 0),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	clients, err := h.uc.ListClients(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if clients == nil {
		clients = []domain.Client{}
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewPage(clients, filter.Limit, filter.Offset, len(clients)))
}

// @Summary Get client
// @Tags clients
// @Router /api/v1/clients/{id} [get]
func (h *ClientHandler) GetClient(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	client, err := h.uc.GetClient(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, client)
}

// @Summary Create client
// @Tags clients
// @Router /api/v1/clients [post]
func (h *ClientHandler) CreateClient(ctx *fasthttp.RequestCtx) {
	var req transport.ClientRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateClient(stdCtx, &domain.Client{Name: req.Name, Email: req.Email, Phone: req.Phone})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Update client
// @Tags clients
// @Router /api/v1/clients/{id} [put]
func (h *ClientHandler) UpdateClient(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}
	var req transport.ClientRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.UpdateClient(stdCtx, &domain.Client{ID: id, Name: req.Name, Email: req.Email, Phone: req.Phone})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}
