package api

import (
	stderrors "errors"

	apierrors "github.com/tradsys/clob/internal/common/errors"
	"github.com/tradsys/clob/internal/clob"
)

// codeFor maps a core sentinel error to its client-facing error code: 400
// for capacity/accounting/market errors, 403 for authorization errors, 404
// for MakerNotFound.
func codeFor(err error) apierrors.ErrorCode {
	switch {
	case stderrors.Is(err, clob.ErrMakerNotFound):
		return apierrors.ErrMakerNotFound
	case stderrors.Is(err, clob.ErrIndexAlreadyTaken):
		return apierrors.ErrIndexAlreadyTaken
	case stderrors.Is(err, clob.ErrUnauthorizedMarketMaker):
		return apierrors.ErrUnauthorizedMarketMaker
	case stderrors.Is(err, clob.ErrInsufficientBalance):
		return apierrors.ErrInsufficientBalance
	case stderrors.Is(err, clob.ErrInferiorPrice):
		return apierrors.ErrInferiorPrice
	case stderrors.Is(err, clob.ErrTakeNotFilled):
		return apierrors.ErrTakeNotFilled
	case stderrors.Is(err, clob.ErrInvalidOrder):
		return apierrors.ErrInvalidOrder
	default:
		return apierrors.ErrInvalidOrder
	}
}

// mapError wraps a raw core error into a CLOBError carrying its HTTP code,
// for logging and JSON response.
func mapError(err error, message string) *apierrors.CLOBError {
	return apierrors.Wrap(err, codeFor(err), message)
}
