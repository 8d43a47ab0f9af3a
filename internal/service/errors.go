package service

import (
	"errors"
	"fmt"

	"rental/internal/domain"
)

// Input errors wrap domain.ErrValidation so callers can match either.
var (
	// ErrInvalidCarID is returned when car ID is empty.
	ErrInvalidCarID = fmt.Errorf("%w: invalid car id", domain.ErrValidation)

	// ErrInvalidBookingID is returned when booking ID is empty.
	ErrInvalidBookingID = fmt.Errorf("%w: invalid booking id", domain.ErrValidation)

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = fmt.Errorf("%w: invalid driver id", domain.ErrValidation)

	// ErrInvalidUserID is returned when user ID is empty.
	ErrInvalidUserID = fmt.Errorf("%w: invalid user id", domain.ErrValidation)

	// ErrInvalidPaymentRef is returned when a payment reference is empty.
	ErrInvalidPaymentRef = fmt.Errorf("%w: invalid payment reference", domain.ErrValidation)

	// ErrDriverSelectionRequired is returned when neither a driver ID nor new driver data is given.
	ErrDriverSelectionRequired = fmt.Errorf("%w: driver_id or driver details are required", domain.ErrValidation)

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = fmt.Errorf("%w: invalid payment id", domain.ErrValidation)
)

// ErrCheckoutProviderUnavailable is returned when the payment provider cannot open a session.
var ErrCheckoutProviderUnavailable = errors.New("checkout provider unavailable")
