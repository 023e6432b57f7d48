package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/craftcv/craftcv-api/internal/errors"
)

// statusForCode maps application error codes to HTTP status codes.
// Codes not listed here render as 500.
var statusForCode = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeValidation:    http.StatusBadRequest,
	apperrors.ErrCodeUnauthorized:  http.StatusUnauthorized,
	apperrors.ErrCodeNotFound:      http.StatusNotFound,
	apperrors.ErrCodeConflict:      http.StatusConflict,
	apperrors.ErrCodeNotReady:      http.StatusConflict,
	apperrors.ErrCodeClaimConflict: http.StatusConflict,
	apperrors.ErrCodeTimeout:       http.StatusGatewayTimeout,
}

// WriteAppError maps an error to an HTTP status and writes the JSON error body.
// AppError codes pass through as the "error" field; anything else, including
// internal and transient failures, collapses to a generic 500 so that driver
// and infrastructure details never reach clients.
func WriteAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if status, ok := statusForCode[appErr.Code]; ok {
			WriteError(w, ErrorParams{
				Code:    status,
				ErrCode: string(appErr.Code),
				Err:     errors.New(appErr.Message),
				Status:  appErr.Status,
			})
			return
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		WriteError(w, ErrorParams{Code: http.StatusGatewayTimeout, ErrCode: "timeout", Err: errors.New("request timed out")})
		return
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "conflict", Err: errors.New("resource is in use")})
		return
	}

	WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal", Err: errors.New("internal server error")})
}
