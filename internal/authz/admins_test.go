package authz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uplifor/aac-api/internal/auth"
	"github.com/uplifor/aac-api/internal/authz"
	"github.com/uplifor/aac-api/internal/role"
)

type mockPrincipals struct {
	getByIDFn func(ctx context.Context, id int64) (*auth.Principal, error)
}

func (m *mockPrincipals) GetByID(ctx context.Context, id int64) (*auth.Principal, error) {
	return m.getByIDFn(ctx, id)
}

func TestAdmins_IsSystemAdmin(t *testing.T) {
	f := newFixture()
	principals := &mockPrincipals{
		getByIDFn: func(_ context.Context, id int64) (*auth.Principal, error) {
			switch id {
			case outsider:
				return &auth.Principal{ID: id, Role: auth.AccountAdmin}, nil
			case teacherID:
				return &auth.Principal{ID: id, Role: auth.AccountTeacher}, nil
			default:
				return nil, auth.ErrPrincipalNotFound
			}
		},
	}
	admins := authz.NewAdmins(role.NewGraph(f.roles, 0, 0), principals)
	ctx := context.Background()

	assert.True(t, admins.IsSystemAdmin(ctx, adminID), "system admin assignment")
	assert.True(t, admins.IsSystemAdmin(ctx, outsider), "flat admin account role")
	assert.False(t, admins.IsSystemAdmin(ctx, teacherID))
	assert.False(t, admins.IsSystemAdmin(ctx, 404))

	f.roles.err = errors.New("connection reset")
	assert.True(t, admins.IsSystemAdmin(ctx, outsider), "falls back to account role")
	assert.False(t, admins.IsSystemAdmin(ctx, adminID))
}
