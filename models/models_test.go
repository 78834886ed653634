package models

import (
	"testing"

	"campus-events/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScanPayload(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantName  string
		wantEmail string
		wantErr   error
	}{
		{
			name:      "json payload",
			payload:   `{"name":"Priya Sharma","email":"priya@college.edu"}`,
			wantName:  "Priya Sharma",
			wantEmail: "priya@college.edu",
		},
		{
			name:      "json payload with whitespace",
			payload:   `{"name":"  Priya Sharma ","email":" priya@college.edu "}`,
			wantName:  "Priya Sharma",
			wantEmail: "priya@college.edu",
		},
		{
			name:    "json payload without email",
			payload: `{"name":"Priya Sharma"}`,
			wantErr: status.ErrMissingEmail,
		},
		{
			name:    "json number scalar",
			payload: "123",
			wantErr: status.ErrMissingEmail,
		},
		{
			name:    "json string scalar",
			payload: `"just a string"`,
			wantErr: status.ErrMissingEmail,
		},
		{
			name:    "json array",
			payload: `["priya@college.edu"]`,
			wantErr: status.ErrMissingEmail,
		},
		{
			name:    "json object with non-string email",
			payload: `{"email":42}`,
			wantErr: status.ErrMissingEmail,
		},
		{
			name:      "comma separated pair",
			payload:   "Priya Sharma,priya@college.edu",
			wantName:  "Priya Sharma",
			wantEmail: "priya@college.edu",
		},
		{
			name:      "comma separated with whitespace",
			payload:   "  Priya Sharma , priya@college.edu ",
			wantName:  "Priya Sharma",
			wantEmail: "priya@college.edu",
		},
		{
			name:      "extra comma fields ignored",
			payload:   "Priya Sharma,priya@college.edu,VIP,row-3",
			wantName:  "Priya Sharma",
			wantEmail: "priya@college.edu",
		},
		{
			name:    "single token",
			payload: "not-a-ticket",
			wantErr: status.ErrInvalidQRFormat,
		},
		{
			name:    "empty email part",
			payload: "Priya Sharma, ",
			wantErr: status.ErrInvalidQRFormat,
		},
		{
			name:    "empty payload",
			payload: "",
			wantErr: status.ErrInvalidQRFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, email, err := ParseScanPayload(tt.payload)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantEmail, email)
		})
	}
}

func TestValidateTicketHolder(t *testing.T) {
	name, email, err := ValidateTicketHolder("  Arjun Mehta ", " arjun@college.edu ")
	require.NoError(t, err)
	assert.Equal(t, "Arjun Mehta", name)
	assert.Equal(t, "arjun@college.edu", email)

	_, _, err = ValidateTicketHolder("   ", "arjun@college.edu")
	assert.ErrorIs(t, err, status.ErrEmptyHolderName)

	_, _, err = ValidateTicketHolder("Arjun Mehta", "not-an-email")
	assert.ErrorIs(t, err, status.ErrInvalidEmail)
}

func TestValidTicketEmail(t *testing.T) {
	valid := []string{
		"user@college.edu",
		"first.last@dept.college.edu",
		"user+tag@college.co.in",
		"  padded@college.edu  ",
	}
	for _, email := range valid {
		assert.True(t, ValidTicketEmail(email), "expected valid: %q", email)
	}

	invalid := []string{
		"",
		"plain",
		"missing@domain",
		"@college.edu",
		"two@@college.edu",
		"spaces in@college.edu",
	}
	for _, email := range invalid {
		assert.False(t, ValidTicketEmail(email), "expected invalid: %q", email)
	}
}

func TestAppendAttendee(t *testing.T) {
	attendees, grew := AppendAttendee(nil, "user-1")
	assert.True(t, grew)
	assert.Equal(t, []string{"user-1"}, attendees)

	attendees, grew = AppendAttendee(attendees, "user-2")
	assert.True(t, grew)
	assert.Equal(t, []string{"user-1", "user-2"}, attendees)

	// Repeat booking of the same user must not grow the list.
	attendees, grew = AppendAttendee(attendees, "user-1")
	assert.False(t, grew)
	assert.Equal(t, []string{"user-1", "user-2"}, attendees)

	attendees, grew = AppendAttendee(attendees, "   ")
	assert.False(t, grew)
	assert.Len(t, attendees, 2)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList("   "))
	assert.Equal(t, []string{"FY", "SY", "TY"}, SplitList("FY, SY ,TY"))
	assert.Equal(t, []string{"user-1"}, SplitList("user-1,"))
	assert.Equal(t, []string{"user-1", "user-2"}, SplitList("user-1, ,user-2"))
}
