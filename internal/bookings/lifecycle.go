package bookings

import (
	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
)

// Action is a lifecycle operation requested by an actor.
type Action string

const (
	ActionConfirm    Action = "confirm"
	ActionComplete   Action = "complete"
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
)

type rule struct {
	from   []Status
	to     Status
	actors []auth.Role
}

// lifecycle is the non-admin transition table. Reschedule keeps the status.
var lifecycle = map[Action]rule{
	ActionConfirm:    {from: []Status{StatusPending}, to: StatusConfirmed, actors: []auth.Role{auth.RoleVet}},
	ActionComplete:   {from: []Status{StatusConfirmed}, to: StatusCompleted, actors: []auth.Role{auth.RoleVet}},
	ActionCancel:     {from: []Status{StatusPending, StatusConfirmed}, actors: []auth.Role{auth.RolePetOwner, auth.RoleVet}, to: StatusCancelled},
	ActionReschedule: {from: []Status{StatusPending, StatusConfirmed}, actors: []auth.Role{auth.RolePetOwner}},
}

// target is the status an action leads to from current.
func (a Action) target(current Status) Status {
	if r, ok := lifecycle[a]; ok && r.to != "" {
		return r.to
	}
	return current
}

// Transition validates action against the booking's current status and the
// actor's role, returning the resulting status. State errors take precedence
// over permission errors, so cancelling a completed booking is always an
// InvalidTransition whoever asks.
func Transition(current Status, action Action, role auth.Role) (Status, error) {
	r, ok := lifecycle[action]
	if !ok {
		return current, apperr.Validation("unknown booking action %q", action)
	}
	next := action.target(current)
	if current.Terminal() {
		return current, apperr.InvalidTransition("booking", string(current), string(next))
	}
	if role == auth.RoleAdmin {
		if action != ActionReschedule && next == current {
			return current, apperr.InvalidTransition("booking", string(current), string(next))
		}
		return next, nil
	}
	if !containsStatus(r.from, current) {
		return current, apperr.InvalidTransition("booking", string(current), string(next))
	}
	if !containsRole(r.actors, role) {
		return current, apperr.Forbidden("%s cannot %s a booking", roleLabel(role), action)
	}
	return next, nil
}

// AdminTransition lets an admin move a booking to any other status, except
// out of a terminal one.
func AdminTransition(current, target Status) error {
	if !target.Valid() {
		return apperr.Validation("unknown booking status %q", target)
	}
	if current.Terminal() || current == target {
		return apperr.InvalidTransition("booking", string(current), string(target))
	}
	return nil
}

// actionFor names the admin status change for metrics and events.
func actionFor(target Status) Action {
	switch target {
	case StatusConfirmed:
		return ActionConfirm
	case StatusCompleted:
		return ActionComplete
	case StatusCancelled:
		return ActionCancel
	default:
		return "reopen"
	}
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsRole(list []auth.Role, r auth.Role) bool {
	for _, v := range list {
		if v == r {
			return true
		}
	}
	return false
}

func roleLabel(r auth.Role) string {
	if r == "" {
		return "anonymous caller"
	}
	return string(r)
}
