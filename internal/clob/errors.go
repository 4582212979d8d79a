package clob

import "errors"

// Stable error taxonomy surfaced to callers. Callers compare
// with errors.Is; the HTTP boundary (internal/api) maps these to status
// codes and wraps them with request context via internal/common/errors.
var (
	ErrIndexAlreadyTaken     = errors.New("clob: market maker index already taken")
	ErrUnauthorizedMarketMaker = errors.New("clob: unauthorized market maker")
	ErrInsufficientBalance   = errors.New("clob: insufficient balance")
	ErrInferiorPrice         = errors.New("clob: order price inferior to full book")
	ErrTakeNotFilled         = errors.New("clob: take order did not meet min_out")
	ErrMakerNotFound         = errors.New("clob: market maker not found")
	ErrInvalidOrder          = errors.New("clob: invalid order parameters")
)
