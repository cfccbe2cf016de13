// Package errors provides structured error handling with error codes for simple-company.
//
// Every service returns *Error values carrying a typed code. Handlers never
// build their own status codes; they call WriteHTTP and the code decides the
// response.
//
// # Overview
//
// The errors package provides:
//   - Structured Error type with error codes and details
//   - Error wrapping with context
//   - HTTP status code mapping and a JSON writer for chi handlers
//
// # Basic Usage
//
//	import "github.com/tendant/simple-company/pkg/errors"
//
//	err := errors.NotFound("company", "42")
//	err := errors.InvalidInput("limit", "must be between 1 and 1000")
//	err := errors.Dependency(awsErr, "directory call failed")
//	err := errors.ProvisioningRejected("InvalidRole", "role is not recognised")
//
// # HTTP Status Code Mapping
//
//	INVALID_INPUT            400
//	UNAUTHORIZED             401
//	FORBIDDEN                403
//	PROVISIONING_REJECTED    403
//	NOT_FOUND                404
//	ALREADY_EXISTS, CONFLICT 409
//	TIMEOUT                  503
//	DEPENDENCY_FAILURE       500
//	INTERNAL_ERROR           500
//
// # HTTP Handler Example
//
//	func (h Handle) GetCompany(w http.ResponseWriter, r *http.Request) {
//		c, err := h.service.Get(r.Context(), actor, id)
//		if err != nil {
//			errors.WriteHTTP(w, r, err)
//			return
//		}
//		render.JSON(w, r, c)
//	}
//
// Responses for 5xx codes use a generic message so dependency details stay in
// the server log.
package errors
