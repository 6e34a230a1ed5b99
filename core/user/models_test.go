package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		usr  User
		want string
	}{
		{"full name", User{FirstName: null.StringFrom("Jane"), LastName: null.StringFrom("Doe"), Email: "jane@doe.cd"}, "Jane Doe"},
		{"first name only falls back to email", User{FirstName: null.StringFrom("Jane"), Email: "jane@doe.cd"}, "jane"},
		{"email local part", User{Email: "jdoe@test.cd"}, "jdoe"},
		{"placeholder", User{ID: 42}, "Student 42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.usr.DisplayName())
		})
	}
}

func TestSetCheckPassword(t *testing.T) {
	var usr User
	assert.NoError(t, usr.SetPassword("V3ryS3cr3t!"))
	assert.NoError(t, usr.CheckPassword("V3ryS3cr3t!"))
	assert.Error(t, usr.CheckPassword("wr0ng"))
}
