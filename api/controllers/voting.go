package controllers

import (
	"net/http"

	"github.com/Mickael78000/voting-dapp/api/models"
	"github.com/Mickael78000/voting-dapp/api/transport"
	"github.com/Mickael78000/voting-dapp/ballot"
	"github.com/Mickael78000/voting-dapp/identity"
	"github.com/gin-gonic/gin"
)

type VotingController struct {
	engine *ballot.Engine
	auth   gin.HandlerFunc
}

func NewVotingController(engine *ballot.Engine, auth gin.HandlerFunc) *VotingController {
	return &VotingController{
		engine: engine,
		auth:   auth,
	}
}

func (c *VotingController) RegisterRoutes(engine *gin.Engine) {
	group := engine.Group("/api")

	group.POST("/polls/:pollId/votes", c.auth, c.castBallot)
	group.GET("/polls/:pollId/voters/:voter", c.getVoterRecord)
	group.DELETE("/voter-records/:address", c.auth, c.closeVoterRecord)
}

// @Security SignerToken
// castBallot godoc
// @Summary Cast a ballot
// @Description Applies plus and minus allocations for the signer; all or nothing
// @Tags voting
// @Accept json
// @Produce json
// @Param pollId path int true "Poll ID"
// @Param ballot body models.CastBallotRequest true "Allocations and candidate set"
// @Success 200 {object} models.ReceiptResponse
// @Failure 400 {object} models.ErrorResponse "Malformed ballot"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid signer token"
// @Failure 404 {object} models.ErrorResponse "Poll not found"
// @Failure 409 {object} models.ErrorResponse "Already voted or concurrent update"
// @Failure 422 {object} models.ErrorResponse "Ballot violates the D21 rules"
// @Failure 500 {object} models.ErrorResponse "Unexpected internal error"
// @Router /api/polls/{pollId}/votes [post]
func (c *VotingController) castBallot(g *gin.Context) {
	pollID, ok := pollIDParam(g)
	if !ok {
		return
	}

	var req models.CastBallotRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, "invalid request format")
		return
	}
	b, err := req.ToBallot(pollID)
	if err != nil {
		writeError(g, "BALLOT", err)
		return
	}

	receipt, err := c.engine.Vote(g.Request.Context(), transport.Signer(g), b)
	if err != nil {
		writeError(g, "BALLOT", err)
		return
	}

	g.JSON(http.StatusOK, models.TransformReceiptToResponse(receipt))
}

// getVoterRecord godoc
// @Summary Get a voter record
// @Description Returns whether the voter has voted in the poll and the votes used
// @Tags voting
// @Produce json
// @Param pollId path int true "Poll ID"
// @Param voter path string true "Voter identity"
// @Success 200 {object} models.VoterRecordResponse
// @Failure 404 {object} models.ErrorResponse "Voter has no record in this poll"
// @Failure 500 {object} models.ErrorResponse "Unexpected internal error"
// @Router /api/polls/{pollId}/voters/{voter} [get]
func (c *VotingController) getVoterRecord(g *gin.Context) {
	pollID, ok := pollIDParam(g)
	if !ok {
		return
	}
	voter := g.Param("voter")

	vr, err := c.engine.VoterRecord(g.Request.Context(), pollID, voter)
	if err != nil {
		writeError(g, "VOTER", err)
		return
	}

	g.JSON(http.StatusOK, models.TransformVoterRecordToResponse(pollID, voter, vr))
}

// @Security SignerToken
// closeVoterRecord godoc
// @Summary Close a voter record
// @Description Deletes the signer's voter record once the poll has ended and reports the refunded deposit
// @Tags voting
// @Produce json
// @Param address path string true "Voter record address (hex)"
// @Success 200 {object} models.CloseVoterRecordResponse
// @Failure 400 {object} models.ErrorResponse "Malformed address"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid signer token"
// @Failure 403 {object} models.ErrorResponse "Signer does not own the record"
// @Failure 404 {object} models.ErrorResponse "Voter record not found"
// @Failure 409 {object} models.ErrorResponse "Poll has not ended"
// @Failure 500 {object} models.ErrorResponse "Unexpected internal error"
// @Router /api/voter-records/{address} [delete]
func (c *VotingController) closeVoterRecord(g *gin.Context) {
	addr, err := identity.ParseAddress(g.Param("address"))
	if err != nil {
		badRequest(g, "address must be 64 hex characters")
		return
	}

	receipt, err := c.engine.CloseVoterRecord(g.Request.Context(), transport.Signer(g), addr)
	if err != nil {
		writeError(g, "VOTER", err)
		return
	}

	g.JSON(http.StatusOK, models.TransformCloseReceiptToResponse(receipt))
}
