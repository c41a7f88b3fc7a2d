package protocol

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/tessera/grid"
	"github.com/aukilabs/tessera/mesh"
	"github.com/aukilabs/tessera/models"
	"github.com/aukilabs/tessera/simplify"
)

// ErrorCode is the reason of an error response.
type ErrorCode string

const (
	ErrorCodeInvalidParameter     ErrorCode = "invalid_parameter"
	ErrorCodeEmptyInput           ErrorCode = "empty_input"
	ErrorCodeNoClustererAvailable ErrorCode = "no_clusterer_available"
	ErrorCodeUpstreamFailure      ErrorCode = "upstream_failure"
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeInternal             ErrorCode = "internal"

	// Error type of requests that are well formed but not valid.
	ErrTypeBadRequest = "bad-request"
)

// ErrorCodeFromError returns the error code that describes err.
func ErrorCodeFromError(err error) ErrorCode {
	switch errors.Type(err) {
	case grid.ErrTypeInvalidParameter:
		return ErrorCodeInvalidParameter

	case simplify.ErrTypeEmptyInput:
		return ErrorCodeEmptyInput

	case models.ErrTypeNoClustererAvailable:
		return ErrorCodeNoClustererAvailable

	case mesh.ErrTypeUpstreamFailure:
		return ErrorCodeUpstreamFailure

	case ErrTypeBadRequest, ErrTypeMsgDecode:
		return ErrorCodeBadRequest

	default:
		return ErrorCodeInternal
	}
}

var errorMessages = map[ErrorCode]string{
	ErrorCodeInvalidParameter:     "Invalid parameter.",
	ErrorCodeEmptyInput:           "Nothing to process.",
	ErrorCodeNoClustererAvailable: "No clusterer available. Please run cluster_vertices first.",
	ErrorCodeUpstreamFailure:      "Meshing failed.",
	ErrorCodeBadRequest:           "Bad request.",
	ErrorCodeInternal:             "Internal error.",
}

// NewErrorResponse describes err for a client.
func NewErrorResponse(err error) ErrorResponse {
	code := ErrorCodeFromError(err)
	message := errorMessages[code]
	if code == ErrorCodeInvalidParameter {
		message = invalidParameterMessage(err)
	}

	return ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// invalidParameterMessage describes the error that rejected a parameter,
// along with the rejected grid size when there is one.
func invalidParameterMessage(err error) string {
	for ; err != nil; err = errors.Unwrap(err) {
		if errors.Type(err) != grid.ErrTypeInvalidParameter {
			continue
		}
		// wrappers report the type of the error they wrap
		if next := errors.Unwrap(err); next != nil && errors.Type(next) == grid.ErrTypeInvalidParameter {
			continue
		}

		message := "Invalid parameter: " + errors.Message(err)
		for _, tag := range []string{"grid_size", "bin_size"} {
			if v := errors.Tag(err, tag); v != "" {
				return message + " (grid size " + v + ")."
			}
		}
		return message + "."
	}
	return errorMessages[ErrorCodeInvalidParameter]
}

// SendError answers req with an error message describing err.
func SendError(respond ResponseSender, req Msg, err error) {
	sendError(respond, req, NewErrorResponse(err))
}

// SendErrorMessage answers req with an error message.
func SendErrorMessage(respond ResponseSender, req Msg, code ErrorCode, message string) {
	sendError(respond, req, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func sendError(respond ResponseSender, req Msg, res ErrorResponse) {
	msg, err := NewMsg(MsgTypeError, req.RequestID, res)
	if err != nil {
		logs.WithTag("request_id", req.RequestID).
			WithTag("error_code", res.Code).
			Warn(errors.New("encoding error response failed").Wrap(err))
		return
	}
	respond.SendMsg(msg)
}
