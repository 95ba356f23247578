package sessions

import (
	"strings"
	"sync"
)

// Speaker labels for transcript lines.
const (
	SpeakerUser  = "User"
	SpeakerAgent = "Agent"
)

// Utterance is one labeled line of the call transcript.
type Utterance struct {
	Speaker string
	Text    string
}

// Session is the per-call state record. One bridge owns it for the duration
// of the call; the store hands out the same pointer to every accessor, so
// all mutation goes through the mutex-guarded methods here.
type Session struct {
	CallSID string

	mu         sync.Mutex
	streamSID  string
	clientInfo map[string]string
	transcript []Utterance

	finalizeOnce sync.Once
}

func newSession(callSID string) *Session {
	return &Session{
		CallSID:    callSID,
		clientInfo: make(map[string]string),
	}
}

// SetStreamSID records the media-stream leg identifier announced by the
// downstream start event.
func (s *Session) SetStreamSID(streamSID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamSID = streamSID
}

// StreamSID returns the current media-stream leg identifier.
func (s *Session) StreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSID
}

// MergeClientInfo copies the given keys into the session's client info.
// Keys already present win: info supplied at call initiation is not
// overwritten by stream-start metadata.
func (s *Session) MergeClientInfo(info map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range info {
		if _, ok := s.clientInfo[k]; !ok {
			s.clientInfo[k] = v
		}
	}
}

// ClientInfo returns a copy of the session's client info.
func (s *Session) ClientInfo() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := make(map[string]string, len(s.clientInfo))
	for k, v := range s.clientInfo {
		info[k] = v
	}
	return info
}

// AppendUtterance appends one labeled line to the transcript. Lines are
// kept strictly in arrival order and never rewritten.
func (s *Session) AppendUtterance(speaker, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, Utterance{Speaker: speaker, Text: text})
}

// Transcript renders the accumulated transcript as "Speaker: text" lines.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, u := range s.transcript {
		b.WriteString(u.Speaker)
		b.WriteString(": ")
		b.WriteString(u.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// Finalize runs f at most once for the lifetime of the session, no matter
// how many termination paths race to call it (socket close, status
// callback). Returns true if f ran.
func (s *Session) Finalize(f func()) bool {
	ran := false
	s.finalizeOnce.Do(func() {
		ran = true
		f()
	})
	return ran
}
