package api

import (
	"net/http"

	"notesmith/internal/services"
)

// HTTPStatus maps a classified error onto a response code.
func HTTPStatus(err error) int {
	switch services.Classify(err) {
	case "":
		return http.StatusOK
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse builds the error body for err.
func NewErrorResponse(err error) ErrorResponse {
	if err == nil {
		return ErrorResponse{}
	}
	return ErrorResponse{Error: err.Error(), Kind: string(services.Classify(err))}
}
