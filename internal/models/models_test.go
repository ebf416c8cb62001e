package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses {
		got, err := ParseStatus(string(s))
		assert.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStatus("pending")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("Consultant")
	assert.NoError(t, err)
	assert.Equal(t, RoleConsultant, r)

	_, err = ParseRole("Guest")
	assert.Error(t, err)

	assert.True(t, RoleManager.IsStaff())
	assert.True(t, RoleSystem.IsStaff())
	assert.False(t, RoleCustomer.IsStaff())
	assert.False(t, RoleConsultant.IsStaff())
}

func TestBooking_Helpers(t *testing.T) {
	consultant := "c-1"
	b := &Booking{Status: StatusPending, ConsultantID: &consultant}

	assert.False(t, b.IsTerminal())
	assert.True(t, b.AssignedTo("c-1"))
	assert.False(t, b.AssignedTo("c-2"))

	b.Status = StatusCancelled
	assert.True(t, b.IsTerminal())
	b.Status = StatusCompleted
	assert.True(t, b.IsTerminal())

	b.ConsultantID = nil
	assert.False(t, b.AssignedTo("c-1"))
}

func TestBooking_Prepare(t *testing.T) {
	now := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	b := &Booking{Status: StatusCompleted, RescheduleUsed: true, FeedbackSubmitted: true}
	b.Prepare(now)

	assert.NotEmpty(t, b.ID)
	assert.Len(t, b.CheckinCode, 8)
	assert.Equal(t, strings.ToUpper(b.CheckinCode), b.CheckinCode)
	assert.Equal(t, StatusPending, b.Status)
	assert.False(t, b.RescheduleUsed)
	assert.False(t, b.FeedbackSubmitted)
	assert.Equal(t, now, b.CreatedAt)
	assert.Equal(t, int64(1), b.Version)

	keep := &Booking{ID: "fixed", CheckinCode: "ABC"}
	keep.Prepare(now)
	assert.Equal(t, "fixed", keep.ID)
	assert.Equal(t, "ABC", keep.CheckinCode)
}
