// Package authz holds the single authorization predicate for the API.
package authz

import "istancool/internal/models"

// Capability names an action that needs a permission check.
type Capability string

const (
	CreatePost       Capability = "post:create"
	EditPost         Capability = "post:edit"
	DeletePost       Capability = "post:delete"
	TogglePostActive Capability = "post:toggle-active"
	ModeratePost     Capability = "post:moderate"
	FeaturePost      Capability = "post:feature"
	ListAllPosts     Capability = "post:list-all"
	ManageCategories Capability = "category:manage"
	ManageUsers      Capability = "user:manage"
	WatchModeration  Capability = "moderation:watch"
)

// Resource describes the object an action targets. OwnerID is zero when
// the action is not scoped to an owned record.
type Resource struct {
	OwnerID uint
}

// Owned is shorthand for a Resource owned by ownerID.
func Owned(ownerID uint) Resource {
	return Resource{OwnerID: ownerID}
}

// ErrForbidden is the message returned for every denied capability.
const ErrForbidden = "Not enough permissions"

// Can reports whether actor may perform c on r. Inactive or missing actors
// may do nothing.
func Can(actor *models.User, c Capability, r Resource) bool {
	if actor == nil || !actor.IsActive {
		return false
	}
	staff := actor.Role == models.RoleEditor || actor.Role == models.RoleAdmin
	admin := actor.Role == models.RoleAdmin
	owner := r.OwnerID != 0 && r.OwnerID == actor.ID

	switch c {
	case CreatePost:
		return true
	case EditPost, DeletePost, TogglePostActive:
		return owner || staff
	case FeaturePost, ListAllPosts, WatchModeration:
		return staff
	case ModeratePost, ManageCategories, ManageUsers:
		return admin
	default:
		return false
	}
}

// Require is Can returning a forbidden AppError on denial.
func Require(actor *models.User, c Capability, r Resource) error {
	if Can(actor, c, r) {
		return nil
	}
	return models.NewForbiddenError(ErrForbidden)
}

// InitialStatus is the moderation state a new post starts in.
func InitialStatus(creator *models.User) models.PostStatus {
	if creator != nil && creator.Role == models.RoleAdmin {
		return models.PostApproved
	}
	return models.PostPending
}
