package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserRole_IsValid(t *testing.T) {
	tests := []struct {
		role UserRole
		want bool
	}{
		{RolePassenger, true},
		{RoleDriver, true},
		{RoleAdmin, true},
		{UserRole("rider"), false},
		{UserRole(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.IsValid())
		})
	}
}

func TestUserRole_CanPushLocation(t *testing.T) {
	assert.True(t, RoleDriver.CanPushLocation())
	assert.True(t, RoleAdmin.CanPushLocation())
	assert.False(t, RolePassenger.CanPushLocation())
}
