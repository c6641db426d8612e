// Package testutils provides shared fixtures for tests that talk to the chat
// service.
package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

const sessionCookie = "session"

// Record returns one stream record line, blank-line terminated as the chat
// service sends it. An empty content is omitted from the payload.
func Record(typ, content string) string {
	payload := map[string]string{"type": typ}
	if content != "" {
		payload["content"] = content
	}
	data, _ := json.Marshal(payload)
	return "data: " + string(data) + "\n\n"
}

// Stream builds a reply stream of chunk records followed by a complete
// record.
func Stream(chunks ...string) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(Record("chunk", c))
	}
	b.WriteString(Record("complete", ""))
	return b.String()
}

// ChatServer mimics the chat service: chat, clear, history and health
// endpoints with history kept per session cookie.
type ChatServer struct {
	*httptest.Server

	mu sync.Mutex

	reply       func(message string) string
	chatStatus  int
	clearStatus int
	writeSize   int
	release     chan struct{}

	messages []string
	clears   int
	sessions int
	history  map[string][]historyEntry
}

type historyEntry struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewChatServer starts a ChatServer. Close it when done.
func NewChatServer() *ChatServer {
	s := &ChatServer{
		history: map[string][]historyEntry{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/clear", s.handleClear)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "parley test service"})
	})
	s.Server = httptest.NewServer(mux)

	return s
}

// SetReply sets the function that builds the stream body for a message.
// The default reply echoes the message.
func (s *ChatServer) SetReply(fn func(message string) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = fn
}

// SetChatStatus makes the chat endpoint fail with status. 0 restores
// streaming replies.
func (s *ChatServer) SetChatStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatStatus = status
}

// SetClearStatus makes the clear endpoint fail with status. 0 restores
// success.
func (s *ChatServer) SetClearStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearStatus = status
}

// SetWriteSize splits replies into flushed writes of n bytes. 0 writes the
// reply at once.
func (s *ChatServer) SetWriteSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeSize = n
}

// Hold makes chat replies wait after the headers are sent until the
// returned function is called.
func (s *ChatServer) Hold() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.release = ch
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Messages returns the messages received so far.
func (s *ChatServer) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

// Clears returns how many clear requests succeeded.
func (s *ChatServer) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

func (s *ChatServer) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}

	s.sessions++
	id := "s" + strconv.Itoa(s.sessions)
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/"})
	return id
}

func (s *ChatServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	if s.chatStatus != 0 {
		status := s.chatStatus
		s.mu.Unlock()
		writeJSON(w, status, map[string]string{"error": "service unavailable"})
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Message cannot be empty"})
		return
	}
	id := s.session(w, r)
	s.messages = append(s.messages, message)
	s.history[id] = append(s.history[id], historyEntry{Role: "user", Content: []contentBlock{{Type: "text", Text: message}}})
	reply := s.reply
	size := s.writeSize
	release := s.release
	s.mu.Unlock()

	body := Stream("echo: " + message)
	if reply != nil {
		body = reply(message)
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	if release != nil {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
	}

	if size <= 0 {
		size = len(body)
	}
	for start := 0; start < len(body); start += size {
		end := min(start+size, len(body))
		if _, err := w.Write([]byte(body[start:end])); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	s.mu.Lock()
	s.history[id] = append(s.history[id], historyEntry{Role: "assistant", Content: []contentBlock{{Type: "text", Text: replyText(body)}}})
	s.mu.Unlock()
}

// replyText concatenates the chunk contents of a stream body.
func replyText(body string) string {
	var b strings.Builder
	for line := range strings.SplitSeq(body, "\n") {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var rec struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}
		if json.Unmarshal([]byte(payload), &rec) == nil && rec.Type == "chunk" {
			b.WriteString(rec.Content)
		}
	}
	return b.String()
}

func (s *ChatServer) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clearStatus != 0 {
		writeJSON(w, s.clearStatus, map[string]string{"error": "clear failed"})
		return
	}

	id := s.session(w, r)
	s.history[id] = nil
	s.clears++
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *ChatServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.session(w, r)
	entries := s.history[id]
	if entries == nil {
		entries = []historyEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
