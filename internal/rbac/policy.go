package rbac

import "fmt"

// Denial reasons.
const (
	ReasonInsufficientRole       = "INSUFFICIENT_ROLE"
	ReasonInsufficientPermission = "INSUFFICIENT_PERMISSION"
)

// DenialError reports why an access requirement was not met.
type DenialError struct {
	Reason   string
	Required []string
	Held     []string
}

func (e *DenialError) Error() string {
	return fmt.Sprintf("rbac: access denied (%s)", e.Reason)
}

// Authorize checks an actor against a requirement. Both axes must pass: the
// actor's role has to be one of the required roles, and every required
// permission has to be present in the actor's effective permission set.
// Pure function; the permission sets must already be resolved.
func Authorize(req AccessRequirement, actor Actor) error {
	if len(req.Roles) > 0 {
		if !contains(req.Roles, actor.Role.Name) {
			return &DenialError{
				Reason:   ReasonInsufficientRole,
				Required: req.Roles,
				Held:     []string{actor.Role.Name},
			}
		}
	}
	if len(req.Permissions) > 0 {
		effective := actor.EffectivePermissions()
		held := make(map[string]struct{}, len(effective))
		for _, p := range effective {
			held[p] = struct{}{}
		}
		for _, p := range req.Permissions {
			if _, ok := held[p]; !ok {
				return &DenialError{
					Reason:   ReasonInsufficientPermission,
					Required: req.Permissions,
					Held:     effective,
				}
			}
		}
	}
	return nil
}

func contains(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
