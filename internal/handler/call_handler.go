package handler

import (
	"Campus/internal/model"
	"Campus/internal/signaling"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CallHandler exposes the signaling exchange over HTTP for clients that
// poll instead of holding a socket.
type CallHandler interface {
	CreateCall(c *gin.Context)
	GetCall(c *gin.Context)
	AnswerCall(c *gin.Context)
	AddCandidate(c *gin.Context)
	GetCandidates(c *gin.Context)
	HangUp(c *gin.Context)
}

type callHandler struct {
	exchange *signaling.Exchange
}

func NewCallHandler(exchange *signaling.Exchange) CallHandler {
	return &callHandler{
		exchange: exchange,
	}
}

func (h *callHandler) CreateCall(c *gin.Context) {
	var req model.CreateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	session, err := h.exchange.Create(c.Request.Context(), req.CallerID, req.CalleeID, req.Offer)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, session, "Call session created")
}

func (h *callHandler) GetCall(c *gin.Context) {
	session, err := h.exchange.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, session, "Call session retrieved")
}

func (h *callHandler) AnswerCall(c *gin.Context) {
	var req model.AnswerCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	session, err := h.exchange.Answer(c.Request.Context(), c.Param("id"), req.CalleeID, req.Answer)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, session, "Call answered")
}

func (h *callHandler) AddCandidate(c *gin.Context) {
	var req model.AddCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	cand, err := h.exchange.AddCandidate(c.Request.Context(), c.Param("id"), req.Side, req.Candidate)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, cand, "Candidate added")
}

func (h *callHandler) GetCandidates(c *gin.Context) {
	side := model.CandidateSide(c.Query("side"))
	if !side.Valid() {
		badRequest(c, "side must be offerer or answerer")
		return
	}

	list, err := h.exchange.Candidates(c.Request.Context(), c.Param("id"), side)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list, "Candidates retrieved")
}

// HangUp deletes the session and both candidate sets. Unknown ids succeed.
func (h *callHandler) HangUp(c *gin.Context) {
	if err := h.exchange.HangUp(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Call ended")
}
