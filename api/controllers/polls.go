package controllers

import (
	"net/http"

	"github.com/Mickael78000/voting-dapp/api/models"
	"github.com/Mickael78000/voting-dapp/api/transport"
	"github.com/Mickael78000/voting-dapp/ballot"
	"github.com/Mickael78000/voting-dapp/identity"
	"github.com/gin-gonic/gin"
)

type PollController struct {
	engine *ballot.Engine
	auth   gin.HandlerFunc
}

func NewPollController(engine *ballot.Engine, auth gin.HandlerFunc) *PollController {
	return &PollController{
		engine: engine,
		auth:   auth,
	}
}

func (c *PollController) RegisterRoutes(engine *gin.Engine) {
	group := engine.Group("/api/polls")

	group.POST("", c.auth, c.createPoll)
	group.GET("/:pollId", c.getPoll)
	group.POST("/:pollId/candidates", c.auth, c.createCandidate)
	group.GET("/:pollId/candidates", c.listCandidates)
	group.GET("/:pollId/candidates/:name", c.getCandidate)
}

// @Security SignerToken
// createPoll godoc
// @Summary Initialize a poll
// @Description Creates a poll and freezes its D21 vote budget
// @Tags polls
// @Accept json
// @Produce json
// @Param poll body models.CreatePollRequest true "Poll definition"
// @Success 201 {object} models.ReceiptResponse
// @Failure 400 {object} models.ErrorResponse "Invalid poll data"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid signer token"
// @Failure 409 {object} models.ErrorResponse "Poll already exists"
// @Failure 500 {object} models.ErrorResponse "Unexpected internal error"
// @Router /api/polls [post]
func (c *PollController) createPoll(g *gin.Context) {
	var req models.CreatePollRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, "invalid request format")
		return
	}

	receipt, err := c.engine.InitializePoll(g.Request.Context(), transport.Signer(g), req.ToParams())
	if err != nil {
		writeError(g, "POLL", err)
		return
	}

	g.JSON(http.StatusCreated, models.TransformReceiptToResponse(receipt))
}

// getPoll godoc
// @Summary Get a poll
// @Description Returns the poll, its budget and every registered candidate with tallies
// @Tags polls
// @Produce json
// @Param pollId path int true "Poll ID"
// @Success 200 {object} models.PollResponse
// @Failure 400 {object} models.ErrorResponse "Malformed poll id"
// @Failure 404 {object} models.ErrorResponse "Poll not found"
// @Failure 500 {object} models.ErrorResponse "Unexpected internal error"
// @Router /api/polls/{pollId} [get]
func (c *PollController) getPoll(g *gin.Context) {
	pollID, ok := pollIDParam(g)
	if !ok {
		return
	}

	poll, err := c.engine.Poll(g.Request.Context(), pollID)
	if err != nil {
		writeError(g, "POLL", err)
		return
	}
	candidates, err := c.engine.Candidates(g.Request.Context(), pollID)
	if err != nil {
		writeError(g, "POLL", err)
		return
	}

	g.JSON(http.StatusOK, models.TransformPollToResponse(poll, candidates))
}

// @Security SignerToken
// createCandidate godoc
// @Summary Register a candidate
// @Description Registers a candidate under the poll and increments its candidate count
// @Tags polls
// @Accept json
// @Produce json
// @Param pollId path int true "Poll ID"
// @Param candidate body models.CreateCandidateRequest true "Candidate"
// @Success 201 {object} models.ReceiptResponse
// @Failure 400 {object} models.ErrorResponse "Invalid candidate name"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid signer token"
// @Failure 404 {object} models.ErrorResponse "Poll not found"
// @Failure 409 {object} models.ErrorResponse "Candidate already registered"
// @Failure 422 {object} models.ErrorResponse "Candidate count overflow"
// @Failure 500 {object} models.ErrorResponse "Unexpected internal error"
// @Router /api/polls/{pollId}/candidates [post]
func (c *PollController) createCandidate(g *gin.Context) {
	pollID, ok := pollIDParam(g)
	if !ok {
		return
	}

	var req models.CreateCandidateRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, "invalid request format")
		return
	}

	receipt, err := c.engine.InitializeCandidate(g.Request.Context(), transport.Signer(g), pollID, req.Name)
	if err != nil {
		writeError(g, "CANDIDATE", err)
		return
	}

	g.JSON(http.StatusCreated, models.TransformReceiptToResponse(receipt))
}

// listCandidates godoc
// @Summary List candidates
// @Description Lists every candidate of the poll ordered by name
// @Tags polls
// @Produce json
// @Param pollId path int true "Poll ID"
// @Success 200 {array} models.CandidateResponse
// @Failure 404 {object} models.ErrorResponse "Poll not found"
// @Failure 500 {object} models.ErrorResponse "Unexpected internal error"
// @Router /api/polls/{pollId}/candidates [get]
func (c *PollController) listCandidates(g *gin.Context) {
	pollID, ok := pollIDParam(g)
	if !ok {
		return
	}

	candidates, err := c.engine.Candidates(g.Request.Context(), pollID)
	if err != nil {
		writeError(g, "CANDIDATE", err)
		return
	}

	resp := make([]models.CandidateResponse, 0, len(candidates))
	for _, cand := range candidates {
		resp = append(resp, models.TransformCandidateToResponse(cand))
	}
	g.JSON(http.StatusOK, resp)
}

// getCandidate godoc
// @Summary Get a candidate by name
// @Description Derives the candidate address from poll id and name and returns its tallies
// @Tags polls
// @Produce json
// @Param pollId path int true "Poll ID"
// @Param name path string true "Candidate name"
// @Success 200 {object} models.CandidateResponse
// @Failure 404 {object} models.ErrorResponse "Candidate not found"
// @Failure 500 {object} models.ErrorResponse "Unexpected internal error"
// @Router /api/polls/{pollId}/candidates/{name} [get]
func (c *PollController) getCandidate(g *gin.Context) {
	pollID, ok := pollIDParam(g)
	if !ok {
		return
	}

	cand, err := c.engine.Candidate(g.Request.Context(), identity.CandidateAddress(pollID, g.Param("name")))
	if err != nil {
		writeError(g, "CANDIDATE", err)
		return
	}

	g.JSON(http.StatusOK, models.TransformCandidateToResponse(cand))
}
