package appointment

import "slices"

type Operation string

const (
	OpCreate                 Operation = "create"
	OpAccept                 Operation = "accept"
	OpReject                 Operation = "reject"
	OpCancel                 Operation = "cancel"
	OpComplete               Operation = "complete"
	OpAttachSpecialistReview Operation = "attach_specialist_review"
	OpAttachSurvey           Operation = "attach_survey"
)

// AcceptedReminder is stored as the reason message once a specialist accepts.
const AcceptedReminder = "Your appointment was accepted. Please arrive 15 minutes early and bring your previous studies."

// StaleRequestReason is stored when the sweeper cancels a request nobody accepted in time.
const StaleRequestReason = "The specialist did not respond before the scheduled time. Please book a new appointment."

var allowedFrom = map[Operation][]Status{
	OpAccept:                 {StatusUnassigned},
	OpReject:                 {StatusUnassigned},
	OpCancel:                 {StatusUnassigned, StatusAccepted},
	OpComplete:               {StatusAccepted},
	OpAttachSpecialistReview: {StatusCompleted},
	OpAttachSurvey:           {StatusCompleted},
}

// CanApply reports whether op may run on an appointment currently in from.
func CanApply(op Operation, from Status) bool {
	return slices.Contains(allowedFrom[op], from)
}

// Permitted is the role check of every lifecycle operation.
func Permitted(op Operation, role Role) bool {
	switch role {
	case RolePatient:
		switch op {
		case OpCreate, OpCancel, OpAttachSpecialistReview, OpAttachSurvey:
			return true
		}
	case RoleSpecialist:
		switch op {
		case OpAccept, OpReject, OpCancel, OpComplete:
			return true
		}
	case RoleAdmin:
		switch op {
		case OpCreate, OpCancel:
			return true
		}
	}
	return false
}
