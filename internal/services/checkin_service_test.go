package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"campus-events/internal/status"
	"campus-events/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCheckinService() *CheckinService {
	return NewCheckinService(nil, 3*time.Second, 12*time.Hour)
}

func TestCheckinService_StartSession(t *testing.T) {
	svc := newTestCheckinService()

	sessionID, accessCode, err := svc.StartSession("event-1")
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)
	assert.Len(t, accessCode, 6)
	assert.Equal(t, 1, svc.SessionCount())
}

func TestCheckinService_ScanGrowsListByOne(t *testing.T) {
	svc := newTestCheckinService()
	sessionID, accessCode, err := svc.StartSession("event-1")
	require.NoError(t, err)

	entry, err := svc.Scan(sessionID, accessCode, "Priya Sharma,priya@college.edu")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.ID)
	assert.Equal(t, "Priya Sharma", entry.Name)
	assert.Equal(t, "priya@college.edu", entry.Email)
	assert.Equal(t, models.CheckinStatusCheckedIn, entry.Status)

	entries, transient, err := svc.Entries(sessionID, accessCode)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "User priya@college.edu checked in successfully!", transient)
}

func TestCheckinService_DuplicateScanRejected(t *testing.T) {
	svc := newTestCheckinService()
	sessionID, accessCode, err := svc.StartSession("event-1")
	require.NoError(t, err)

	_, err = svc.Scan(sessionID, accessCode, `{"name":"Priya","email":"priya@college.edu"}`)
	require.NoError(t, err)

	// Same email, different name and format: still a duplicate.
	_, err = svc.Scan(sessionID, accessCode, "P. Sharma,priya@college.edu")
	assert.ErrorIs(t, err, status.ErrAlreadyCheckedIn)

	entries, transient, err := svc.Entries(sessionID, accessCode)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "User with email priya@college.edu is already checked in.", transient)
}

func TestCheckinService_InvalidPayload(t *testing.T) {
	svc := newTestCheckinService()
	sessionID, accessCode, err := svc.StartSession("event-1")
	require.NoError(t, err)

	_, err = svc.Scan(sessionID, accessCode, "garbage")
	assert.ErrorIs(t, err, status.ErrInvalidQRFormat)

	_, err = svc.Scan(sessionID, accessCode, `{"name":"no email"}`)
	assert.ErrorIs(t, err, status.ErrMissingEmail)

	entries, transient, err := svc.Entries(sessionID, accessCode)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, "Invalid QR Code format.", transient)
}

func TestCheckinService_AccessCodeRequired(t *testing.T) {
	svc := newTestCheckinService()
	sessionID, _, err := svc.StartSession("event-1")
	require.NoError(t, err)

	_, err = svc.Scan(sessionID, "000000", "Priya,priya@college.edu")
	assert.ErrorIs(t, err, status.ErrBadAccessCode)

	_, err = svc.Scan("no-such-session", "000000", "Priya,priya@college.edu")
	assert.ErrorIs(t, err, status.ErrSessionNotFound)
}

func TestCheckinService_ScanOrderPreserved(t *testing.T) {
	svc := newTestCheckinService()
	sessionID, accessCode, err := svc.StartSession("event-1")
	require.NoError(t, err)

	emails := []string{"a@college.edu", "b@college.edu", "c@college.edu"}
	for _, email := range emails {
		_, err := svc.Scan(sessionID, accessCode, "Student,"+email)
		require.NoError(t, err)
	}

	entries, _, err := svc.Entries(sessionID, accessCode)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, email := range emails {
		assert.Equal(t, i+1, entries[i].ID)
		assert.Equal(t, email, entries[i].Email)
	}
}

func TestCheckinService_ExportImportRoundTrip(t *testing.T) {
	svc := newTestCheckinService()
	sessionID, accessCode, err := svc.StartSession("event-1")
	require.NoError(t, err)

	_, err = svc.Scan(sessionID, accessCode, "Priya Sharma,priya@college.edu")
	require.NoError(t, err)
	_, err = svc.Scan(sessionID, accessCode, "Arjun Mehta,arjun@college.edu")
	require.NoError(t, err)

	var sheet bytes.Buffer
	require.NoError(t, svc.Export(sessionID, accessCode, &sheet))

	lines := strings.Split(strings.TrimSpace(sheet.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name,email,status", lines[0])
	assert.Equal(t, "1,Priya Sharma,priya@college.edu,Checked In", lines[1])
	assert.Equal(t, "2,Arjun Mehta,arjun@college.edu,Checked In", lines[2])

	// Resume the run on a fresh session from the exported sheet.
	resumedID, resumedCode, err := svc.StartSession("event-1")
	require.NoError(t, err)

	imported, err := svc.Import(resumedID, resumedCode, strings.NewReader(sheet.String()))
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	entries, _, err := svc.Entries(resumedID, resumedCode)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "priya@college.edu", entries[0].Email)
	assert.Equal(t, "arjun@college.edu", entries[1].Email)

	// Already imported emails stay deduped on a second scan.
	_, err = svc.Scan(resumedID, resumedCode, "Priya Sharma,priya@college.edu")
	assert.ErrorIs(t, err, status.ErrAlreadyCheckedIn)
}

func TestCheckinService_ImportSkipsDuplicates(t *testing.T) {
	svc := newTestCheckinService()
	sessionID, accessCode, err := svc.StartSession("event-1")
	require.NoError(t, err)

	_, err = svc.Scan(sessionID, accessCode, "Priya Sharma,priya@college.edu")
	require.NoError(t, err)

	sheet := "id,name,email,status\n" +
		"1,Priya Sharma,priya@college.edu,Checked In\n" +
		"2,Arjun Mehta,arjun@college.edu,Checked In\n"

	imported, err := svc.Import(sessionID, accessCode, strings.NewReader(sheet))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	entries, _, err := svc.Entries(sessionID, accessCode)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCheckinService_CloseSession(t *testing.T) {
	svc := newTestCheckinService()
	sessionID, accessCode, err := svc.StartSession("event-1")
	require.NoError(t, err)

	require.NoError(t, svc.CloseSession(sessionID, accessCode))
	assert.Equal(t, 0, svc.SessionCount())

	_, _, err = svc.Entries(sessionID, accessCode)
	assert.ErrorIs(t, err, status.ErrSessionNotFound)
}

func TestCheckinService_TransientStatusExpires(t *testing.T) {
	// The TTL must comfortably exceed the bcrypt access-code check each
	// read performs, or the status expires before the first assertion.
	svc := NewCheckinService(nil, 1*time.Second, 12*time.Hour)
	sessionID, accessCode, err := svc.StartSession("event-1")
	require.NoError(t, err)

	_, err = svc.Scan(sessionID, accessCode, "Priya,priya@college.edu")
	require.NoError(t, err)

	_, transient, err := svc.Entries(sessionID, accessCode)
	require.NoError(t, err)
	assert.NotEmpty(t, transient)

	time.Sleep(1200 * time.Millisecond)

	_, transient, err = svc.Entries(sessionID, accessCode)
	require.NoError(t, err)
	assert.Empty(t, transient)
}
