package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-company/pkg/authz"
	"github.com/tendant/simple-company/pkg/errors"
)

func TestInMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewInMemoryDirectory()

	created, err := dir.CreateIdentity(ctx, CreateIdentityInput{
		Username:   "jane@example.com",
		Attributes: map[string]string{AttrEmail: "jane@example.com", AttrRole: "employee", AttrCompanyID: "3"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Sub())

	_, err = dir.CreateIdentity(ctx, CreateIdentityInput{Username: "jane@example.com"})
	assert.ErrorIs(t, err, ErrIdentityExists)

	require.NoError(t, dir.UpdateAttributes(ctx, "jane@example.com", map[string]string{AttrRole: "admin", AttrSub: "hijack"}))
	got, err := dir.GetIdentity(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Attr(AttrRole))
	assert.Equal(t, created.Sub(), got.Sub())

	token, err := dir.IssueToken("jane@example.com")
	require.NoError(t, err)
	resolved, err := dir.ResolveToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", resolved.Username)

	require.NoError(t, dir.DeleteIdentity(ctx, "jane@example.com"))
	_, err = dir.ResolveToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, dir.DeleteIdentity(ctx, "jane@example.com"), ErrIdentityNotFound)
}

func TestActorFromIdentity(t *testing.T) {
	tests := []struct {
		name    string
		attrs   map[string]string
		want    authz.Actor
		wantErr bool
	}{
		{
			name:  "admin",
			attrs: map[string]string{AttrRole: "admin", AttrCompanyID: "5", AttrEmail: "a@x.io"},
			want:  authz.Actor{Username: "u", Email: "a@x.io", Role: authz.RoleAdmin, CompanyID: 5},
		},
		{
			name:  "platform super admin without company",
			attrs: map[string]string{AttrRole: "super_admin"},
			want:  authz.Actor{Username: "u", Role: authz.RoleSuperAdmin},
		},
		{name: "employee without company", attrs: map[string]string{AttrRole: "employee"}, wantErr: true},
		{name: "unknown role", attrs: map[string]string{AttrRole: "owner", AttrCompanyID: "5"}, wantErr: true},
		{name: "non numeric company", attrs: map[string]string{AttrRole: "admin", AttrCompanyID: "acme"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ActorFromIdentity(Identity{Username: "u", Attributes: tt.attrs})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	dir := NewInMemoryDirectory()
	dir.Seed(Identity{Username: "boss", Attributes: map[string]string{AttrRole: "admin", AttrCompanyID: "2"}})
	dir.Seed(Identity{Username: "drifter", Attributes: map[string]string{AttrRole: "employee"}})
	bossToken, _ := dir.IssueToken("boss")
	drifterToken, _ := dir.IssueToken("drifter")

	resolver := NewResolver(dir)

	actor, err := resolver.ResolveActor(ctx, bossToken)
	require.NoError(t, err)
	assert.Equal(t, int64(2), actor.CompanyID)

	_, err = resolver.ResolveActor(ctx, "bogus")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))

	_, err = resolver.ResolveActor(ctx, drifterToken)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))
}
