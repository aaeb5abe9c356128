package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"debias/domain/core"
	"debias/internal/correct"
	apperrors "debias/internal/errors"
)

// respondError maps engine errors onto the wire contract: every failure is a
// JSON payload with a distinguishable code, never a bare message.
func respondError(c *gin.Context, err error) {
	var seqErr *correct.SequenceError
	if errors.As(err, &seqErr) {
		payload := gin.H{
			"error":             seqErr.Error(),
			"code":              apperrors.CodeSequenceAborted,
			"failed_column":     seqErr.FailedColumn,
			"succeeded_columns": seqErr.Succeeded,
			"transformations":   seqErr.Transformations,
		}
		if seqErr.LastGood != nil {
			payload["corrected_file_path"] = seqErr.LastGood.Path
		}
		c.JSON(http.StatusInternalServerError, payload)
		return
	}

	code := apperrors.GetCode(err)
	if code == "UNKNOWN" {
		switch {
		case core.IsNotFoundError(err):
			code = apperrors.CodeNotFound
		case errors.Is(err, core.ErrUnknownMethod), errors.Is(err, core.ErrRoleConflict), errors.Is(err, core.ErrWrongRole):
			code = apperrors.CodeValidationError
		case errors.Is(err, core.ErrInsufficientData):
			code = apperrors.CodeInsufficientData
		default:
			code = apperrors.CodeInternalError
		}
	}

	c.JSON(statusFor(code), gin.H{"error": err.Error(), "code": code})
}

func statusFor(code string) int {
	switch code {
	case apperrors.CodeValidationError, apperrors.CodeMissingParameter, apperrors.CodeInsufficientData:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
