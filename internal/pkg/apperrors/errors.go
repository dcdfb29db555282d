package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrValidation         ErrorType = "VALIDATION_ERROR"
	ErrInsufficientStock  ErrorType = "INSUFFICIENT_STOCK"
	ErrInsufficientFunds  ErrorType = "INSUFFICIENT_FUNDS"
	ErrNotAContainer      ErrorType = "NOT_A_CONTAINER"
	ErrShopNotFound       ErrorType = "SHOP_NOT_FOUND"
	ErrShopExists         ErrorType = "SHOP_EXISTS"
	ErrAuctionNotFound    ErrorType = "AUCTION_NOT_FOUND"
	ErrLotNotFound        ErrorType = "LOT_NOT_FOUND"
	ErrBidTooLow          ErrorType = "BID_TOO_LOW"
	ErrAuctionHasBids     ErrorType = "AUCTION_HAS_BIDS"
	ErrAuctionClosed      ErrorType = "AUCTION_CLOSED"
	ErrKeeperNotFound     ErrorType = "KEEPER_NOT_FOUND"
	ErrOrderNotFound      ErrorType = "ORDER_NOT_FOUND"
	ErrNotOwner           ErrorType = "NOT_OWNER"
	ErrCancelled          ErrorType = "CANCELLED"
	ErrPersistenceFailure ErrorType = "PERSISTENCE_FAILURE"
	ErrAuthFailed         ErrorType = "AUTH_FAILED"
	ErrRateLimited        ErrorType = "RATE_LIMITED"
	ErrReadOnly           ErrorType = "READ_ONLY"
	ErrInternal           ErrorType = "INTERNAL_ERROR"
	ErrNotFound           ErrorType = "NOT_FOUND"
)

// AppError is the standard error struct for the application.
// Limit carries the actual limiting quantity when known (bundles in stock, bundles affordable, minimum bid).
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	Limit      *int      `json:"limit,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithLimit attaches the limiting quantity and returns the same error.
func (e *AppError) WithLimit(n int) *AppError {
	e.Limit = &n
	return e
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func Newf(errType ErrorType, format string, args ...any) *AppError {
	return New(errType, fmt.Sprintf(format, args...), nil)
}

func NewValidation(msg string) *AppError {
	return New(ErrValidation, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Is reports whether err is an AppError of the given type.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// LimitOf returns the limiting quantity carried by err, if any.
func LimitOf(err error) (int, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Limit != nil {
		return *appErr.Limit, true
	}
	return 0, false
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrValidation, ErrBidTooLow:
		return http.StatusBadRequest
	case ErrInsufficientStock, ErrInsufficientFunds, ErrAuctionHasBids, ErrAuctionClosed, ErrShopExists:
		return http.StatusConflict
	case ErrNotAContainer:
		return http.StatusUnprocessableEntity
	case ErrShopNotFound, ErrAuctionNotFound, ErrLotNotFound, ErrKeeperNotFound, ErrOrderNotFound, ErrNotFound:
		return http.StatusNotFound
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrNotOwner, ErrCancelled:
		return http.StatusForbidden
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrReadOnly, ErrPersistenceFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrInsufficientStock:
		return "Buy fewer bundles or wait for the shop to be restocked."
	case ErrInsufficientFunds:
		return "Carry more currency or lower the amount."
	case ErrBidTooLow:
		return "Bid at least the current minimum."
	case ErrAuctionHasBids:
		return "Auctions with bids cannot be cancelled."
	case ErrNotAContainer:
		return "Shops must sit on a container block."
	case ErrAuthFailed:
		return "Send a known player id in X-Player-ID."
	case ErrRateLimited:
		return "Retry the request."
	default:
		return ""
	}
}
