package domain

import "time"

// Event is a lifecycle trigger.
type Event string

const (
	EventAttachDriver          Event = "ATTACH_DRIVER"
	EventDocumentsVerified     Event = "DOCUMENTS_VERIFIED"
	EventDocumentRejected      Event = "DOCUMENT_REJECTED"
	EventPaymentSucceeded      Event = "PAYMENT_SUCCEEDED"
	EventPaymentSessionExpired Event = "PAYMENT_SESSION_EXPIRED"
	EventPickupRecorded        Event = "PICKUP_RECORDED"
	EventReturnRecorded        Event = "RETURN_RECORDED"
	EventCancel                Event = "CANCEL"
)

// TransitionContext carries what guards need to evaluate a transition.
type TransitionContext struct {
	Today time.Time
	Range DateRange
}

type transitionKey struct {
	from  BookingStatus
	event Event
}

var transitions = map[transitionKey]BookingStatus{
	{BookingStatusPending, EventAttachDriver}:                 BookingStatusPending,
	{BookingStatusPending, EventDocumentsVerified}:            BookingStatusPaymentPending,
	{BookingStatusPending, EventDocumentRejected}:             BookingStatusRejected,
	{BookingStatusPaymentPending, EventPaymentSucceeded}:      BookingStatusConfirmed,
	{BookingStatusPaymentPending, EventPaymentSessionExpired}: BookingStatusCancelled,
	{BookingStatusConfirmed, EventPickupRecorded}:             BookingStatusActive,
	{BookingStatusActive, EventReturnRecorded}:                BookingStatusCompleted,
}

// Transition returns the status reached by applying ev in status from.
// It is pure: callers persist the result.
func Transition(from BookingStatus, ev Event, tc TransitionContext) (BookingStatus, error) {
	if from.IsTerminal() {
		return from, &InvalidTransitionError{From: from, Event: ev, Reason: "booking is in a terminal status"}
	}

	if ev == EventCancel {
		return BookingStatusCancelled, nil
	}

	next, ok := transitions[transitionKey{from, ev}]
	if !ok {
		return from, &InvalidTransitionError{From: from, Event: ev}
	}

	if ev == EventPickupRecorded && Date(tc.Today).Before(tc.Range.Start) {
		return from, &InvalidTransitionError{From: from, Event: ev, Reason: "rental has not started yet"}
	}

	return next, nil
}
