package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"campus-events/internal/status"
	"campus-events/models"
	"campus-events/monitoring"
	"campus-events/utils"

	"github.com/google/uuid"
	pubnub "github.com/pubnub/go"
	"golang.org/x/crypto/bcrypt"
)

// scanSession is one event's check-in run. All state is in-memory for
// the lifetime of the session and is gone on restart, which matches
// how the scanning flow is used: a phone pointed at a queue for a few
// hours.
type scanSession struct {
	ID       string
	EventID  string
	codeHash []byte

	entries []models.CheckinEntry
	emails  map[string]struct{}

	lastStatus   string
	lastStatusAt time.Time

	createdAt  time.Time
	lastActive time.Time
}

// CheckinService manages scan sessions. A single mutex serializes all
// scans; decoded QR payloads can arrive faster than they are handled
// and the dedupe check must not race with the append.
type CheckinService struct {
	mu       sync.Mutex
	sessions map[string]*scanSession

	PubNub *pubnub.PubNub

	statusTTL  time.Duration
	sessionTTL time.Duration
}

func NewCheckinService(pn *pubnub.PubNub, statusTTL, sessionTTL time.Duration) *CheckinService {
	return &CheckinService{
		sessions:   make(map[string]*scanSession),
		PubNub:     pn,
		statusTTL:  statusTTL,
		sessionTTL: sessionTTL,
	}
}

// StartSession opens a scan session for an event and returns its id
// together with a one-time access code for the scanner devices. Only
// a bcrypt hash of the code is kept.
func (s *CheckinService) StartSession(eventID string) (sessionID, accessCode string, err error) {
	accessCode, err = utils.GenerateOTP(6)
	if err != nil {
		return "", "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(accessCode), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}

	session := &scanSession{
		ID:         uuid.NewString(),
		EventID:    eventID,
		codeHash:   hash,
		emails:     make(map[string]struct{}),
		createdAt:  time.Now(),
		lastActive: time.Now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	monitoring.SetActiveScanSessions(len(s.sessions))
	s.mu.Unlock()

	slog.Info("scan session started", "session_id", session.ID, "event_id", eventID)
	return session.ID, accessCode, nil
}

// Scan handles one decoded QR payload. The first scan of an email
// appends exactly one entry; a repeat scan is rejected and leaves the
// list unchanged.
func (s *CheckinService) Scan(sessionID, accessCode, payload string) (*models.CheckinEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.authorized(sessionID, accessCode)
	if err != nil {
		return nil, err
	}
	session.lastActive = time.Now()

	name, email, err := models.ParseScanPayload(payload)
	if err != nil {
		monitoring.TrackScan("invalid")
		s.setStatus(session, "Invalid QR Code format.")
		return nil, err
	}

	if _, dup := session.emails[email]; dup {
		monitoring.TrackScan("duplicate")
		s.setStatus(session, fmt.Sprintf("User with email %s is already checked in.", email))
		return nil, status.ErrAlreadyCheckedIn
	}

	entry := models.CheckinEntry{
		ID:     len(session.entries) + 1,
		Name:   name,
		Email:  email,
		Status: models.CheckinStatusCheckedIn,
	}
	session.entries = append(session.entries, entry)
	session.emails[email] = struct{}{}

	monitoring.TrackScan("checked_in")
	s.setStatus(session, fmt.Sprintf("User %s checked in successfully!", email))

	if s.PubNub != nil {
		// Off the lock: the organizer dashboard can lag, scans cannot.
		go s.PubNub.Publish().
			Channel(fmt.Sprintf("checkin-%s", session.EventID)).
			Message(map[string]any{
				"type":       "attendee_checked_in",
				"session_id": session.ID,
				"name":       name,
				"email":      email,
				"total":      entry.ID,
			}).
			Execute()
	}

	return &entry, nil
}

// Entries returns a copy of the session's check-in list in scan order,
// plus the transient status message if it has not expired yet.
func (s *CheckinService) Entries(sessionID, accessCode string) ([]models.CheckinEntry, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.authorized(sessionID, accessCode)
	if err != nil {
		return nil, "", err
	}

	entries := make([]models.CheckinEntry, len(session.entries))
	copy(entries, session.entries)

	transient := ""
	if time.Since(session.lastStatusAt) < s.statusTTL {
		transient = session.lastStatus
	}
	return entries, transient, nil
}

// Export writes the session's entries as a spreadsheet (CSV with an
// id,name,email,status header) in scan order.
func (s *CheckinService) Export(sessionID, accessCode string, w io.Writer) error {
	entries, _, err := s.Entries(sessionID, accessCode)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "name", "email", "status"}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{strconv.Itoa(e.ID), e.Name, e.Email, e.Status}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Import loads a previously exported sheet back into the session, so
// a scanning run can resume on another device. Rows colliding with
// already scanned emails are skipped.
func (s *CheckinService) Import(sessionID, accessCode string, r io.Reader) (int, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read exported sheet: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.authorized(sessionID, accessCode)
	if err != nil {
		return 0, err
	}
	session.lastActive = time.Now()

	imported := 0
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "id" {
			continue // header
		}
		if len(row) < 4 {
			continue
		}
		email := row[2]
		if _, dup := session.emails[email]; dup {
			continue
		}
		session.entries = append(session.entries, models.CheckinEntry{
			ID:     len(session.entries) + 1,
			Name:   row[1],
			Email:  email,
			Status: row[3],
		})
		session.emails[email] = struct{}{}
		imported++
	}
	return imported, nil
}

// CloseSession ends a scan session and drops its in-memory state.
func (s *CheckinService) CloseSession(sessionID, accessCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.authorized(sessionID, accessCode); err != nil {
		return err
	}

	delete(s.sessions, sessionID)
	monitoring.SetActiveScanSessions(len(s.sessions))
	slog.Info("scan session closed", "session_id", sessionID)
	return nil
}

// SessionCount reports the number of live scan sessions.
func (s *CheckinService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CleanupIdleSessions drops sessions with no activity for the session
// TTL. Runs until the context is cancelled.
func (s *CheckinService) CleanupIdleSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			for id, session := range s.sessions {
				if time.Since(session.lastActive) > s.sessionTTL {
					delete(s.sessions, id)
					slog.Info("expired idle scan session", "session_id", id, "event_id", session.EventID)
				}
			}
			monitoring.SetActiveScanSessions(len(s.sessions))
			s.mu.Unlock()
		}
	}
}

// authorized looks up a session and checks the device access code.
// Callers must hold s.mu.
func (s *CheckinService) authorized(sessionID, accessCode string) (*scanSession, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, status.ErrSessionNotFound
	}
	if bcrypt.CompareHashAndPassword(session.codeHash, []byte(accessCode)) != nil {
		return nil, status.ErrBadAccessCode
	}
	return session, nil
}

func (s *CheckinService) setStatus(session *scanSession, msg string) {
	session.lastStatus = msg
	session.lastStatusAt = time.Now()
}
