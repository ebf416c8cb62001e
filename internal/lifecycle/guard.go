// Package lifecycle holds the booking state machine: which status changes
// are legal, who may request them, the reschedule-once policy and the
// feedback gate. Everything here is pure; persistence re-checks the same
// preconditions atomically at write time.
package lifecycle

import "consultbook/internal/models"

var allowedTransitions = map[models.Status]map[models.Status]bool{
	models.StatusPending:   {models.StatusConfirmed: true, models.StatusCancelled: true},
	models.StatusConfirmed: {models.StatusCompleted: true, models.StatusCancelled: true},
	models.StatusCompleted: {},
	models.StatusCancelled: {},
}

var transitionActors = map[models.Status]map[models.Role]bool{
	models.StatusConfirmed: {
		models.RoleStaff: true, models.RoleManager: true, models.RoleAdmin: true,
		models.RoleConsultant: true, models.RoleSystem: true,
	},
	models.StatusCompleted: {
		models.RoleStaff: true, models.RoleManager: true, models.RoleAdmin: true,
		models.RoleConsultant: true, models.RoleSystem: true,
	},
	models.StatusCancelled: {
		models.RoleCustomer: true, models.RoleStaff: true, models.RoleManager: true,
		models.RoleAdmin: true, models.RoleSystem: true,
	},
}

var rescheduleActors = map[models.Role]bool{
	models.RoleCustomer: true, models.RoleStaff: true, models.RoleManager: true,
	models.RoleAdmin: true, models.RoleSystem: true,
}

// IsTerminal reports whether the status has no outgoing transitions.
func IsTerminal(s models.Status) bool {
	next, ok := allowedTransitions[s]
	return !ok || len(next) == 0
}

// CanTransition reports whether the edge exists in the transition graph.
func CanTransition(from, to models.Status) bool {
	return allowedTransitions[from][to]
}

// CheckTransition decides whether role may move a booking from current to target.
func CheckTransition(current, target models.Status, role models.Role) error {
	actors, known := transitionActors[target]
	if !known {
		return reject(CodeIllegalTransition, "%s is not a reachable status", target)
	}
	if !actors[role] {
		return reject(CodeUnauthorized, "%s may not move a booking to %s", role, target)
	}
	if IsTerminal(current) {
		return reject(CodeAlreadyTerminal, "booking is already %s", current)
	}
	if !CanTransition(current, target) {
		return reject(CodeIllegalTransition, "cannot move from %s to %s", current, target)
	}
	return nil
}

// CheckReschedule gates the one allowed date/time change.
func CheckReschedule(b *models.Booking, role models.Role) error {
	if !rescheduleActors[role] {
		return reject(CodeUnauthorized, "%s may not reschedule bookings", role)
	}
	if b.RescheduleUsed {
		return reject(CodeRescheduleAlreadyUsed, "booking %s was already rescheduled", b.ID)
	}
	if b.Status != models.StatusPending {
		return reject(CodeBookingNotEditable, "booking is %s", b.Status)
	}
	return nil
}

// CheckFeedback gates feedback submission.
func CheckFeedback(b *models.Booking) error {
	if b.Status != models.StatusCompleted {
		return reject(CodeBookingNotCompleted, "booking is %s", b.Status)
	}
	if b.FeedbackSubmitted {
		return reject(CodeFeedbackAlreadyExists, "feedback for booking %s already exists", b.ID)
	}
	return nil
}

// CheckOwnership verifies that the actor may touch this particular booking.
// Customers act on their own bookings, consultants on bookings assigned to them.
func CheckOwnership(b *models.Booking, actorID string, role models.Role) error {
	switch role {
	case models.RoleCustomer:
		if b.CustomerID != actorID {
			return reject(CodeUnauthorized, "booking belongs to another customer")
		}
	case models.RoleConsultant:
		if !b.AssignedTo(actorID) {
			return reject(CodeUnauthorized, "booking is not assigned to this consultant")
		}
	}
	return nil
}
