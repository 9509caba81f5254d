package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Mickael78000/voting-dapp/api/models"
	"github.com/Mickael78000/voting-dapp/ballot"
	"github.com/Mickael78000/voting-dapp/logging"
	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, ballot.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ballot.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ballot.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ballot.ErrAlreadyExists),
		errors.Is(err, ballot.ErrAlreadyVoted),
		errors.Is(err, ballot.ErrPollOpen),
		errors.Is(err, ballot.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ballot.ErrOverflow),
		errors.Is(err, ballot.ErrTooManyPlus),
		errors.Is(err, ballot.ErrTooManyMinus),
		errors.Is(err, ballot.ErrInvalidTotal),
		errors.Is(err, ballot.ErrMinusRequiresTwoPlus),
		errors.Is(err, ballot.ErrMissingCandidate):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(g *gin.Context, tag string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Log.Errorf("%s: unexpected error on %s: %v", tag, g.Request.URL.Path, err)
		g.JSON(status, &models.ErrorResponse{Error: "unexpected internal error", Code: ballot.Code(err)})
		return
	}
	logging.Log.Infof("%s: request to %s rejected: %v", tag, g.Request.URL.Path, err)
	g.JSON(status, &models.ErrorResponse{Error: err.Error(), Code: ballot.Code(err)})
}

func badRequest(g *gin.Context, msg string) {
	g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: msg, Code: "InvalidInput"})
}

func pollIDParam(g *gin.Context) (uint32, bool) {
	id, err := strconv.ParseUint(g.Param("pollId"), 10, 32)
	if err != nil {
		badRequest(g, "pollId must be an unsigned 32-bit integer")
		return 0, false
	}
	return uint32(id), true
}
