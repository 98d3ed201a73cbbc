package service

import (
	"context"
	"errors"
	"testing"

	"github.com/hangarhq/flightgate/internal/domain"
)

func TestAuthorizeRoleHierarchy(t *testing.T) {
	schools := newFakeSchoolRepo()
	schools.admins[1] = []uint{10}
	schools.instructors[1] = []uint{20}
	svc := NewAuthzService(schools)
	ctx := context.Background()

	tests := []struct {
		name    string
		p       domain.Principal
		action  Action
		res     ResourceRef
		wantErr error
	}{
		{
			name:   "sys_admin bypasses scoping",
			p:      domain.Principal{UserID: 1, Role: domain.RoleSysAdmin},
			action: ActionSchoolManage,
			res:    ResourceRef{SchoolID: uintPtr(99)},
		},
		{
			name:   "school_admin manages own school",
			p:      domain.Principal{UserID: 10, Role: domain.RoleSchoolAdmin},
			action: ActionSchoolManage,
			res:    ResourceRef{SchoolID: uintPtr(1)},
		},
		{
			name:    "school_admin denied other school as not found",
			p:       domain.Principal{UserID: 10, Role: domain.RoleSchoolAdmin},
			action:  ActionSchoolManage,
			res:     ResourceRef{SchoolID: uintPtr(2)},
			wantErr: ErrScopeNotFound,
		},
		{
			name:   "instructor reads own school",
			p:      domain.Principal{UserID: 20, Role: domain.RoleInstructor},
			action: ActionSchoolRead,
			res:    ResourceRef{SchoolID: uintPtr(1)},
		},
		{
			name:    "instructor cannot manage school",
			p:       domain.Principal{UserID: 20, Role: domain.RoleInstructor},
			action:  ActionSchoolManage,
			res:     ResourceRef{SchoolID: uintPtr(1)},
			wantErr: ErrForbidden,
		},
		{
			name:    "student cannot read school roster",
			p:       domain.Principal{UserID: 30, Role: domain.RoleStudent, SchoolID: uintPtr(1)},
			action:  ActionSchoolRead,
			res:     ResourceRef{SchoolID: uintPtr(1)},
			wantErr: ErrForbidden,
		},
		{
			name:   "student reads own record",
			p:      domain.Principal{UserID: 30, Role: domain.RoleStudent, SchoolID: uintPtr(1)},
			action: ActionStudentRead,
			res:    ResourceRef{SchoolID: uintPtr(1), StudentUserID: uintPtr(30)},
		},
		{
			name:    "student denied another student's record",
			p:       domain.Principal{UserID: 30, Role: domain.RoleStudent, SchoolID: uintPtr(1)},
			action:  ActionStudentRead,
			res:     ResourceRef{SchoolID: uintPtr(1), StudentUserID: uintPtr(31)},
			wantErr: ErrForbidden,
		},
		{
			name:    "student outside school sees not found",
			p:       domain.Principal{UserID: 30, Role: domain.RoleStudent, SchoolID: uintPtr(1)},
			action:  ActionStudentRead,
			res:     ResourceRef{SchoolID: uintPtr(2), StudentUserID: uintPtr(30)},
			wantErr: ErrScopeNotFound,
		},
		{
			name:    "unknown role denied",
			p:       domain.Principal{UserID: 40, Role: domain.Role("auditor")},
			action:  ActionStudentRead,
			res:     ResourceRef{},
			wantErr: ErrForbidden,
		},
		{
			name:    "unknown action denied",
			p:       domain.Principal{UserID: 1, Role: domain.RoleSysAdmin},
			action:  Action("school:destroy"),
			res:     ResourceRef{},
			wantErr: ErrForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Authorize(ctx, tt.p, tt.action, tt.res)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authorize() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthorizeMembershipFromRoster(t *testing.T) {
	schools := newFakeSchoolRepo()
	svc := NewAuthzService(schools)
	ctx := context.Background()
	p := domain.Principal{UserID: 10, Role: domain.RoleSchoolAdmin}
	res := ResourceRef{SchoolID: uintPtr(5)}

	if err := svc.Authorize(ctx, p, ActionSchoolManage, res); !errors.Is(err, ErrScopeNotFound) {
		t.Fatalf("before roster add: error = %v, want ErrScopeNotFound", err)
	}

	// Membership is read from the roster per request, so the grant takes
	// effect without reissuing the session.
	if err := schools.AddAdmin(ctx, 5, 10); err != nil {
		t.Fatal(err)
	}
	if err := svc.Authorize(ctx, p, ActionSchoolManage, res); err != nil {
		t.Fatalf("after roster add: error = %v", err)
	}
}
