package service

import (
	"context"
	"errors"

	"github.com/hangarhq/flightgate/internal/domain"
	"github.com/hangarhq/flightgate/internal/observability"
	"github.com/hangarhq/flightgate/internal/repository"
)

// Action names a guarded operation. Authorization is two-step: the role
// hierarchy gates the action, then resource scoping decides whether this
// principal may touch this particular school or student.
type Action string

const (
	ActionSchoolRead   Action = "school:read"
	ActionSchoolManage Action = "school:manage"
	ActionStudentRead  Action = "student:read"
	ActionStudentWrite Action = "student:write"
	ActionAPIKeyManage Action = "apikey:manage"
	ActionRosterManage Action = "roster:manage"
)

// actionRanks is the minimum role rank per action. Unknown actions have no
// entry and are denied.
var actionRanks = map[Action]int{
	ActionSchoolRead:   2,
	ActionSchoolManage: 3,
	ActionStudentRead:  1,
	ActionStudentWrite: 1,
	ActionAPIKeyManage: 3,
	ActionRosterManage: 3,
}

var (
	// ErrForbidden is the in-scope privilege failure: the caller may know
	// the resource exists but may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrScopeNotFound is the cross-tenant failure: the resource is outside
	// the caller's scope and its existence is not acknowledged.
	ErrScopeNotFound = errors.New("resource not found")
)

// ResourceRef identifies the resource an action targets. Nil fields mean
// the action is not bound to that dimension.
type ResourceRef struct {
	SchoolID *uint
	// StudentUserID is the owning user of a student record, used to grant
	// students access to their own record only.
	StudentUserID *uint
}

type AuthzService struct {
	schools repository.SchoolRepository
}

func NewAuthzService(schools repository.SchoolRepository) *AuthzService {
	return &AuthzService{schools: schools}
}

// Authorize checks role rank first, then school membership. Membership for
// admins and instructors comes from the roster tables, not from token
// claims, so a roster change takes effect on the next request. sys_admin
// bypasses scoping entirely.
func (s *AuthzService) Authorize(ctx context.Context, p domain.Principal, action Action, res ResourceRef) error {
	required, known := actionRanks[action]
	if !known {
		observability.RecordAuthzDecision(ctx, string(action), "unknown_action")
		return ErrForbidden
	}
	if p.Role.Rank() < required {
		observability.RecordAuthzDecision(ctx, string(action), "rank_denied")
		return ErrForbidden
	}
	if p.Role == domain.RoleSysAdmin {
		observability.RecordAuthzDecision(ctx, string(action), "allowed")
		return nil
	}

	if res.SchoolID != nil {
		inScope, err := s.schoolInScope(ctx, p, *res.SchoolID)
		if err != nil {
			observability.RecordAuthzDecision(ctx, string(action), "error")
			return err
		}
		if !inScope {
			observability.RecordAuthzDecision(ctx, string(action), "scope_denied")
			return ErrScopeNotFound
		}
	}

	// Students may only touch their own record, even inside their school.
	if p.Role == domain.RoleStudent && res.StudentUserID != nil && *res.StudentUserID != p.UserID {
		observability.RecordAuthzDecision(ctx, string(action), "owner_denied")
		return ErrForbidden
	}

	observability.RecordAuthzDecision(ctx, string(action), "allowed")
	return nil
}

func (s *AuthzService) schoolInScope(ctx context.Context, p domain.Principal, schoolID uint) (bool, error) {
	switch p.Role {
	case domain.RoleSchoolAdmin:
		return s.schools.IsAdmin(ctx, schoolID, p.UserID)
	case domain.RoleInstructor:
		return s.schools.IsInstructor(ctx, schoolID, p.UserID)
	case domain.RoleStudent:
		return p.SchoolID != nil && *p.SchoolID == schoolID, nil
	default:
		return false, nil
	}
}
