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

func newCronjobFixture(t *testing.T, now time.Time) (*cronjobServiceImpl, *memCronjobs) {
	t.Helper()
	repo := newMemCronjobs()
	users := newMemUsers(models.User{ID: "owner", IsEnabled: true})
	svc := NewCronjobService(zerolog.Nop(), repo, users, nil).(*cronjobServiceImpl)
	svc.now = func() time.Time { return now }
	return svc, repo
}

func TestCronjobService_Create(t *testing.T) {
	svc, _ := newCronjobFixture(t, time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC))

	job, err := svc.CreateCronjob(context.Background(), CronjobParams{
		Description: " Water the plants ",
		UserID:      "owner",
		TimeOfDay:   "09:00:00",
		Repeat:      models.RepeatDaily,
		Priority:    models.PriorityNormal,
	})
	require.NoError(t, err)
	assert.NotZero(t, job.ID)
	assert.Equal(t, "Water the plants", job.Description)
	assert.Equal(t, models.TimeOfDay{Hour: 9}, job.TimeOfDay)

	got, err := svc.GetCronjob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.TimeOfDay, got.TimeOfDay)
}

func TestCronjobService_Create_Invalid(t *testing.T) {
	valid := CronjobParams{
		Description: "Water the plants",
		UserID:      "owner",
		TimeOfDay:   "09:00:00",
		Repeat:      models.RepeatDaily,
		Priority:    models.PriorityNormal,
	}

	tests := []struct {
		name   string
		modify func(p *CronjobParams)
	}{
		{name: "empty description", modify: func(p *CronjobParams) { p.Description = "" }},
		{name: "unknown user", modify: func(p *CronjobParams) { p.UserID = "ghost" }},
		{name: "bad time", modify: func(p *CronjobParams) { p.TimeOfDay = "9am" }},
		{name: "minutes only", modify: func(p *CronjobParams) { p.TimeOfDay = "09:00" }},
		{name: "bad repeat", modify: func(p *CronjobParams) { p.Repeat = "hourly" }},
		{name: "bad priority", modify: func(p *CronjobParams) { p.Priority = "low" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newCronjobFixture(t, time.Now())
			params := valid
			tt.modify(&params)

			_, err := svc.CreateCronjob(context.Background(), params)
			require.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, repo.rows)
		})
	}
}

func TestCronjobService_RejectsUnpolledTimes(t *testing.T) {
	repo := newMemCronjobs()
	users := newMemUsers(models.User{ID: "owner", IsEnabled: true})
	onTheMinute := func(t models.TimeOfDay) bool { return t.Second == 0 }
	svc := NewCronjobService(zerolog.Nop(), repo, users, onTheMinute)

	params := CronjobParams{
		Description: "Backup",
		UserID:      "owner",
		TimeOfDay:   "09:00:30",
		Repeat:      models.RepeatDaily,
		Priority:    models.PriorityNormal,
	}
	_, err := svc.CreateCronjob(context.Background(), params)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "never polled")
	assert.Empty(t, repo.rows)

	params.TimeOfDay = "09:00:00"
	job, err := svc.CreateCronjob(context.Background(), params)
	require.NoError(t, err)

	params.TimeOfDay = "10:15:05"
	_, err = svc.UpdateCronjob(context.Background(), job.ID, params)
	require.ErrorIs(t, err, ErrValidation)
}

func TestCronjobService_UpdateAndDelete(t *testing.T) {
	svc, _ := newCronjobFixture(t, time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC))
	params := CronjobParams{
		Description: "Backup",
		UserID:      "owner",
		TimeOfDay:   "23:30:00",
		Repeat:      models.RepeatWeekly,
		Priority:    models.PriorityHigh,
	}
	job, err := svc.CreateCronjob(context.Background(), params)
	require.NoError(t, err)

	params.TimeOfDay = "22:15:30"
	updated, err := svc.UpdateCronjob(context.Background(), job.ID, params)
	require.NoError(t, err)
	assert.Equal(t, "22:15:30", updated.TimeOfDay.String())

	_, err = svc.UpdateCronjob(context.Background(), 404, params)
	require.ErrorIs(t, err, ErrCronjobNotFound)

	require.NoError(t, svc.DeleteCronjob(context.Background(), job.ID))
	require.ErrorIs(t, svc.DeleteCronjob(context.Background(), job.ID), ErrCronjobNotFound)
	_, err = svc.GetCronjob(context.Background(), job.ID)
	require.ErrorIs(t, err, ErrCronjobNotFound)
}

func TestCronjobService_DueCronjobs(t *testing.T) {
	// Wednesday.
	created := time.Date(2025, time.June, 4, 12, 0, 0, 0, time.UTC)
	svc, repo := newCronjobFixture(t, created)

	add := func(tod string, repeat models.RepeatInterval) int64 {
		job, err := svc.CreateCronjob(context.Background(), CronjobParams{
			Description: "job " + tod + " " + string(repeat),
			UserID:      "owner",
			TimeOfDay:   tod,
			Repeat:      repeat,
			Priority:    models.PriorityNormal,
		})
		require.NoError(t, err)
		return job.ID
	}
	daily := add("09:00:00", models.RepeatDaily)
	weekly := add("09:00:00", models.RepeatWeekly)
	add("09:00:01", models.RepeatDaily)
	require.Len(t, repo.rows, 3)

	// Wednesday a week later, sub-second part ignored.
	due, err := svc.DueCronjobs(context.Background(), time.Date(2025, time.June, 11, 9, 0, 0, 999, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, daily, due[0].ID)
	assert.Equal(t, weekly, due[1].ID)

	// Thursday: the weekly template stays quiet.
	due, err = svc.DueCronjobs(context.Background(), time.Date(2025, time.June, 12, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, daily, due[0].ID)

	due, err = svc.DueCronjobs(context.Background(), time.Date(2025, time.June, 12, 9, 0, 2, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, due)
}
