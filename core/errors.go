package core

import (
	"errors"
	"strconv"

	"lending/pkg/number"
	"lending/pkg/ratelimiter"
)

var (
	// ErrMathOverflow checked arithmetic overflow
	ErrMathOverflow = number.ErrMathOverflow
	// ErrMathUnderflow checked arithmetic underflow
	ErrMathUnderflow = number.ErrMathUnderflow
	// ErrRateLimitExceeded reserve outflow window is full
	ErrRateLimitExceeded = ratelimiter.ErrRateLimitExceeded

	// ErrBorrowTooLarge borrow exceeds a borrow limit
	ErrBorrowTooLarge = errors.New("borrow too large")
	// ErrInsufficientLiquidity reserve has not enough available liquidity
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInsufficientCollateral obligation has not enough collateral
	ErrInsufficientCollateral = errors.New("insufficient collateral")
	// ErrStaleData reserve or obligation needs refresh
	ErrStaleData = errors.New("stale data, refresh required")
	// ErrInvalidConfig malformed reserve config
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidAmount zero or out of range amount
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidPrice zero price
	ErrInvalidPrice = errors.New("invalid price")
	// ErrInvalidSlot refresh slot ahead of the current slot
	ErrInvalidSlot = errors.New("invalid slot")
	// ErrReserveNotFound no reserve
	ErrReserveNotFound = errors.New("reserve not found")
	// ErrObligationNotFound no obligation
	ErrObligationNotFound = errors.New("obligation not found")
	// ErrObligationReserveLimit too many reserves in one obligation
	ErrObligationReserveLimit = errors.New("obligation reserve limit exceeded")
	// ErrNegativeInterestRate cumulative borrow rate went down
	ErrNegativeInterestRate = errors.New("negative interest rate")
	// ErrBorrowNotFound obligation has no borrow in the reserve
	ErrBorrowNotFound = errors.New("borrow not found")
	// ErrVersionConflict record changed by a concurrent writer
	ErrVersionConflict = errors.New("version conflict")
	// ErrForbidden caller is not allowed to run the operation
	ErrForbidden = errors.New("forbidden")
)

// ErrorCode int
type ErrorCode int

const (
	// CodeUnknown unknown
	CodeUnknown ErrorCode = 100000
	// CodeInvalidArguments invalid arguments
	CodeInvalidArguments ErrorCode = 100001
	// CodeForbidden forbidden
	CodeForbidden ErrorCode = 100002

	// CodeMathOverflow math overflow
	CodeMathOverflow ErrorCode = 100100
	// CodeMathUnderflow math underflow
	CodeMathUnderflow ErrorCode = 100101
	// CodeBorrowTooLarge borrow too large
	CodeBorrowTooLarge ErrorCode = 100102
	// CodeRateLimitExceeded rate limit exceeded
	CodeRateLimitExceeded ErrorCode = 100103
	// CodeInsufficientLiquidity insufficient liquidity
	CodeInsufficientLiquidity ErrorCode = 100104
	// CodeInsufficientCollateral insufficient collateral
	CodeInsufficientCollateral ErrorCode = 100105
	// CodeStaleData stale data
	CodeStaleData ErrorCode = 100106
	// CodeInvalidConfig invalid config
	CodeInvalidConfig ErrorCode = 100107
	// CodeInvalidAmount invalid amount
	CodeInvalidAmount ErrorCode = 100108
	// CodeInvalidPrice invalid price
	CodeInvalidPrice ErrorCode = 100109
	// CodeInvalidSlot invalid slot
	CodeInvalidSlot ErrorCode = 100110
	// CodeObligationReserveLimit obligation reserve limit
	CodeObligationReserveLimit ErrorCode = 100111
	// CodeNegativeInterestRate negative interest rate
	CodeNegativeInterestRate ErrorCode = 100112

	// CodeReserveNotFound no reserve
	CodeReserveNotFound ErrorCode = 100200
	// CodeObligationNotFound no obligation
	CodeObligationNotFound ErrorCode = 100201
	// CodeBorrowNotFound no borrow
	CodeBorrowNotFound ErrorCode = 100202
	// CodeVersionConflict version conflict
	CodeVersionConflict ErrorCode = 100203
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}

var errorCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrMathOverflow, CodeMathOverflow},
	{ErrMathUnderflow, CodeMathUnderflow},
	{ErrBorrowTooLarge, CodeBorrowTooLarge},
	{ErrRateLimitExceeded, CodeRateLimitExceeded},
	{ErrInsufficientLiquidity, CodeInsufficientLiquidity},
	{ErrInsufficientCollateral, CodeInsufficientCollateral},
	{ErrStaleData, CodeStaleData},
	{ErrInvalidConfig, CodeInvalidConfig},
	{ratelimiter.ErrInvalidConfig, CodeInvalidConfig},
	{ErrInvalidAmount, CodeInvalidAmount},
	{ErrInvalidPrice, CodeInvalidPrice},
	{ErrInvalidSlot, CodeInvalidSlot},
	{ErrObligationReserveLimit, CodeObligationReserveLimit},
	{ErrNegativeInterestRate, CodeNegativeInterestRate},
	{ErrReserveNotFound, CodeReserveNotFound},
	{ErrObligationNotFound, CodeObligationNotFound},
	{ErrBorrowNotFound, CodeBorrowNotFound},
	{ErrVersionConflict, CodeVersionConflict},
	{ErrForbidden, CodeForbidden},
}

// CodeOf error code of err, CodeUnknown if err wraps no known error
func CodeOf(err error) ErrorCode {
	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}

	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}

	return CodeUnknown
}

// IsNotFound reserve or obligation missing
func IsNotFound(err error) bool {
	return errors.Is(err, ErrReserveNotFound) || errors.Is(err, ErrObligationNotFound)
}

// ErrorOf sentinel error of code, code itself if none maps to it
func ErrorOf(code ErrorCode) error {
	for _, c := range errorCodes {
		if c.code == code {
			return c.err
		}
	}

	return code
}
