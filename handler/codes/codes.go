package codes

import (
	"errors"
	"strconv"

	"lending/core"

	"github.com/twitchtv/twirp"
)

const (
	// CustomCodeKey code key
	CustomCodeKey = "custom_code"

	// InvalidArguments invalid arguments
	InvalidArguments = int(core.CodeInvalidArguments)
)

// With with specified error
func With(err error, code int) error {
	twerr, ok := err.(twirp.Error)
	if !ok {
		twerr = twirp.InternalErrorWith(err)
	}

	return twerr.WithMeta(CustomCodeKey, strconv.Itoa(code))
}

// Get get error code
func Get(code twirp.ErrorCode) int {
	switch code {
	case twirp.InvalidArgument:
		return InvalidArguments
	default:
		return twirp.ServerHTTPStatusFromErrorCode(code)
	}
}

// Twirp twirp error of an engine or store error, tagged with its core error code
func Twirp(err error) twirp.Error {
	var twerr twirp.Error
	if errors.As(err, &twerr) {
		return twerr
	}

	code := core.CodeOf(err)
	var twcode twirp.ErrorCode
	switch code {
	case core.CodeReserveNotFound, core.CodeObligationNotFound, core.CodeBorrowNotFound:
		twcode = twirp.NotFound
	case core.CodeInvalidArguments, core.CodeInvalidAmount, core.CodeInvalidConfig, core.CodeInvalidPrice, core.CodeInvalidSlot:
		twcode = twirp.InvalidArgument
	case core.CodeMathOverflow, core.CodeMathUnderflow:
		twcode = twirp.OutOfRange
	case core.CodeRateLimitExceeded:
		twcode = twirp.ResourceExhausted
	case core.CodeVersionConflict:
		twcode = twirp.Aborted
	case core.CodeForbidden:
		twcode = twirp.PermissionDenied
	case core.CodeUnknown:
		twcode = twirp.Internal
	default:
		twcode = twirp.FailedPrecondition
	}

	return With(twirp.NewError(twcode, err.Error()), int(code)).(twirp.Error)
}

// Of http status and error code to respond with
func Of(err error) (int, int) {
	twerr := Twirp(err)
	status := twirp.ServerHTTPStatusFromErrorCode(twerr.Code())

	code, convErr := strconv.Atoi(twerr.Meta(CustomCodeKey))
	if convErr != nil {
		code = Get(twerr.Code())
	}

	return status, code
}
