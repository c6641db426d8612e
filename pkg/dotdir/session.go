package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/papercomputeco/parley/pkg/chat"
)

const (
	sessionFile = "session.json"
)

// SessionState is the persisted chat service session of the last chat. The
// service keys its conversation history by cookie, so saving the cookies
// lets later commands act on that conversation.
type SessionState struct {
	// Target is the normalized service URL the cookies belong to.
	Target string `json:"target"`

	Cookies []SessionCookie `json:"cookies"`
}

// SessionCookie is one saved service cookie.
type SessionCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HTTPCookies converts the saved cookies for use with a cookie jar.
func (s *SessionState) HTTPCookies() []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies
}

// LoadSessionState loads the session state from a target .parley/session.json.
// Returns nil, nil if no session has been saved.
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) LoadSessionState(overrideDir string) (*SessionState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, sessionFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	state := &SessionState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing session state: %w", err)
	}

	return state, nil
}

// SaveSession persists the session state to a target .parley/session.json.
func (m *Manager) SaveSession(state *SessionState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil session state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	path := filepath.Join(dir, sessionFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}

	return nil
}

// ClearSession removes the session state file.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearSession(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, sessionFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing session state: %w", err)
	}

	return nil
}

// SaveClientSession saves the cookies client holds. A client without
// cookies saves nothing.
func (m *Manager) SaveClientSession(client *chat.Client, overrideDir string) error {
	cookies := client.Cookies()
	if len(cookies) == 0 {
		return nil
	}

	state := &SessionState{Target: client.BaseURL()}
	for _, c := range cookies {
		state.Cookies = append(state.Cookies, SessionCookie{Name: c.Name, Value: c.Value})
	}

	return m.SaveSession(state, overrideDir)
}

// ResumeClientSession hands the saved cookies to client when they were saved
// for the same target. It reports whether a session was resumed.
func (m *Manager) ResumeClientSession(client *chat.Client, overrideDir string) (bool, error) {
	state, err := m.LoadSessionState(overrideDir)
	if err != nil {
		return false, err
	}

	if state == nil || state.Target != client.BaseURL() || len(state.Cookies) == 0 {
		return false, nil
	}

	client.SetCookies(state.HTTPCookies())
	return true, nil
}
