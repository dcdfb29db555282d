package handler

import (
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/mcbn/tradepost/internal/middleware"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
)

// fail renders err right away so the idempotency layer records the real
// status and body. ErrorHandler still logs it from c.Errors.
func fail(c *gin.Context, err error) {
	appErr := apperrors.Wrap(err)
	middleware.AddAuditContext(c, "error", appErr.Type)
	_ = c.Error(appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, apperrors.New(apperrors.ErrValidation, "invalid request body", err))
		return false
	}
	return true
}

// caller returns the authenticated player, failing the request for anonymous callers.
func caller(c *gin.Context) (string, bool) {
	id := middleware.PlayerID(c)
	if id == "" {
		fail(c, apperrors.New(apperrors.ErrAuthFailed, "this action needs "+middleware.HeaderPlayerID, nil))
		return "", false
	}
	return id, true
}

// posParam parses a world;x;y;z path segment.
func posParam(c *gin.Context, name string) (model.BlockPos, bool) {
	raw, err := url.PathUnescape(c.Param(name))
	if err != nil {
		raw = c.Param(name)
	}
	pos, err := model.ParseBlockPos(raw)
	if err != nil {
		fail(c, apperrors.New(apperrors.ErrValidation, err.Error(), nil))
		return model.BlockPos{}, false
	}
	return pos, true
}
