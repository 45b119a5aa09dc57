package http

import (
	"net/http"

	"engineatlas/internal/dataset"
	apierrors "engineatlas/internal/errors"
	customMiddleware "engineatlas/internal/middleware"
	apiv1 "engineatlas/pkg/contracts/api/v1"
)

// toFilter converts API filter params into a dataset filter. The two
// structs are kept separate so validation tags stay on the contract
// side and the dataset package never sees HTTP concerns.
func toFilter(p apiv1.FilterParams) dataset.Filter {
	return dataset.Filter{
		Makes:       p.Makes,
		YearMin:     p.YearMin,
		YearMax:     p.YearMax,
		EngineTypes: p.EngineTypes,
		Cylinders:   p.Cylinders,
	}
}

// decodeFilter parses and validates the shared filter query parameters.
// On failure it writes the RFC 7807 response itself and returns false.
func decodeFilter(w http.ResponseWriter, r *http.Request, validation *customMiddleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler) (dataset.Filter, bool) {
	params, err := apiv1.FilterParamsFromQuery(r.URL.Query())
	if err != nil {
		errorHandler.HandleError(w, r, apierrors.ErrValidation("query", err.Error()))
		return dataset.Filter{}, false
	}
	if err := validation.ValidateStruct(params); err != nil {
		errorHandler.HandleError(w, r, err)
		return dataset.Filter{}, false
	}
	return toFilter(params), true
}
