package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

func TestUserService_UpdateUser_DisableDropsSessions(t *testing.T) {
	users := newMemUsers(models.User{ID: "u1", Name: "Jane", IsEnabled: true})
	sessions := newMemSessions()
	for _, id := range []string{"s1", "s2"} {
		require.NoError(t, sessions.CreateSession(context.Background(), &models.Session{
			ID:        id,
			UserID:    "u1",
			ExpiresAt: time.Now().Add(time.Hour),
		}))
	}
	svc := NewUserService(zerolog.Nop(), &fakeTx{}, users, sessions)

	disabled := false
	user, err := svc.UpdateUser(context.Background(), "u1", UpdateUserParams{IsEnabled: &disabled})
	require.NoError(t, err)
	assert.False(t, user.IsEnabled)
	assert.Zero(t, sessions.count("u1"))
}

func TestUserService_UpdateProfile(t *testing.T) {
	users := newMemUsers(models.User{ID: "u1", Name: "Jane", IsEnabled: true})
	svc := NewUserService(zerolog.Nop(), &fakeTx{}, users, newMemSessions())

	_, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileParams{})
	require.ErrorIs(t, err, ErrValidation)

	empty := " "
	_, err = svc.UpdateProfile(context.Background(), "u1", UpdateProfileParams{Name: &empty})
	require.ErrorIs(t, err, ErrValidation)

	name, phone := "Jane Roe", " +4400 "
	user, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileParams{Name: &name, ContactNumber: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", user.Name)
	assert.Equal(t, "+4400", user.ContactNumber)
	assert.True(t, user.IsEnabled)

	_, err = svc.UpdateProfile(context.Background(), "ghost", UpdateProfileParams{Name: &name})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_ListUsers(t *testing.T) {
	users := newMemUsers(
		models.User{ID: "a"},
		models.User{ID: "b"},
		models.User{ID: "c"},
	)
	svc := NewUserService(zerolog.Nop(), &fakeTx{}, users, newMemSessions())

	page, err := svc.ListUsers(context.Background(), Page{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c", page.Items[0].ID)
}

func TestActivityService_ListActivity(t *testing.T) {
	repo := &memActivity{}
	svc := NewActivityService(zerolog.Nop(), repo)

	taskID := int64(1)
	for _, userID := range []string{"u1", "u2", "u1"} {
		require.NoError(t, svc.Record(context.Background(), &models.ActivityLog{
			UserID:           userID,
			TaskID:           &taskID,
			TaskAbbreviation: "N25060001",
			Action:           models.ActionUpdate,
		}))
	}
	for _, e := range repo.all() {
		assert.False(t, e.CreatedAt.IsZero())
	}

	own, err := svc.ListActivity(context.Background(), Actor{UserID: "u1"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, own.Total)
	for _, e := range own.Items {
		assert.Equal(t, "u1", e.UserID)
	}

	all, err := svc.ListActivity(context.Background(), Actor{UserID: "admin", IsAdmin: true}, Page{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
}

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		in   Page
		want Page
	}{
		{in: Page{}, want: Page{Page: 1, Size: DefaultPageSize}},
		{in: Page{Page: -3, Size: 5}, want: Page{Page: 1, Size: 5}},
		{in: Page{Page: 4, Size: 1000}, want: Page{Page: 4, Size: MaxPageSize}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Normalize())
	}
	assert.Equal(t, 40, Page{Page: 3, Size: 20}.Offset())
}
