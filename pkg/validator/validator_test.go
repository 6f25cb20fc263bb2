package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegister(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		display  string
		password string
		fields   []string
	}{
		{"valid", "a@example.com", "Asha", "Secret123", nil},
		{"missing everything", "", "", "", []string{"email", "display_name", "password"}},
		{"bad email", "not-an-email", "Asha", "Secret123", []string{"email"}},
		{"short name", "a@example.com", "A", "Secret123", []string{"display_name"}},
		{"weak password", "a@example.com", "Asha", "secretsecret", []string{"password"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateRegister(tt.email, tt.display, tt.password)
			assert.Len(t, errs, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, errs, f)
			}
		})
	}
}

func TestValidatePasswordNamesMissingClasses(t *testing.T) {
	errs := ValidateRegister("a@example.com", "Asha", "alllowercase")
	assert.Equal(t, "Password must contain at least one uppercase letter, one number", errs["password"])
}

func TestValidateConnectRequest(t *testing.T) {
	assert.False(t, ValidateConnectRequest(3, "Hi").HasErrors())
	assert.Contains(t, ValidateConnectRequest(0, ""), "user_id")
	assert.Contains(t, ValidateConnectRequest(3, strings.Repeat("x", MaxRequestMessageLength+1)), "message")
}

func TestValidateMessage(t *testing.T) {
	assert.False(t, ValidateMessage("").HasErrors())
	assert.False(t, ValidateMessage(strings.Repeat("é", MaxMessageLength)).HasErrors())
	assert.True(t, ValidateMessage(strings.Repeat("x", MaxMessageLength+1)).HasErrors())
}
