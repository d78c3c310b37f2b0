package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantTypeFromRole(t *testing.T) {
	tests := []struct {
		role    string
		want    ParticipantType
		wantErr bool
	}{
		{"employee", ParticipantEmployee, false},
		{"Employee", ParticipantEmployee, false},
		{"consultant", ParticipantConsultant, false},
		{"CONSULTANT", ParticipantConsultant, false},
		{"admin", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParticipantTypeFromRole(tt.role)
		if tt.wantErr {
			assert.Error(t, err, "role %q", tt.role)
			continue
		}
		require.NoError(t, err, "role %q", tt.role)
		assert.Equal(t, tt.want, got)
	}
}

func TestSessionViewParticipantName(t *testing.T) {
	employee := SessionView{FullName: "Jordan Reyes"}
	assert.Equal(t, "Jordan Reyes", employee.ParticipantName())

	consultant := SessionView{OrganizationName: "Bright Path"}
	assert.Equal(t, "Bright Path", consultant.ParticipantName())

	dangling := SessionView{}
	assert.Equal(t, "", dangling.ParticipantName())
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPasswordHash("s3cret-pass", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}
