package dotdir_test

import (
	"context"
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/dotdir"
	testutils "github.com/papercomputeco/parley/pkg/utils/test"
)

var _ = Describe("dotdir.Manager session", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadSessionState", func() {
		It("returns nil when no session file exists", func() {
			state, err := m.LoadSessionState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("loads a valid session state", func() {
			data := `{"target":"http://127.0.0.1:5000","cookies":[{"name":"session","value":"abc"}]}`
			err := os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			state, err := m.LoadSessionState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Target).To(Equal("http://127.0.0.1:5000"))
			Expect(state.Cookies).To(Equal([]dotdir.SessionCookie{{Name: "session", Value: "abc"}}))

			cookies := state.HTTPCookies()
			Expect(cookies).To(HaveLen(1))
			Expect(cookies[0].Name).To(Equal("session"))
			Expect(cookies[0].Value).To(Equal("abc"))
		})

		It("returns error for invalid JSON", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("not json"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			state, err := m.LoadSessionState(tmpDir)
			Expect(err).To(HaveOccurred())
			Expect(state).To(BeNil())
		})
	})

	Describe("SaveSession", func() {
		It("round trips a session state", func() {
			state := &dotdir.SessionState{
				Target:  "http://chat:5000",
				Cookies: []dotdir.SessionCookie{{Name: "session", Value: "xyz"}},
			}
			Expect(m.SaveSession(state, tmpDir)).To(Succeed())

			info, err := os.Stat(filepath.Join(tmpDir, "session.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			loaded, err := m.LoadSessionState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(state))
		})

		It("rejects a nil state", func() {
			Expect(m.SaveSession(nil, tmpDir)).NotTo(Succeed())
		})
	})

	Describe("ClearSession", func() {
		It("removes the session file", func() {
			Expect(m.SaveSession(&dotdir.SessionState{Target: "x"}, tmpDir)).To(Succeed())
			Expect(m.ClearSession(tmpDir)).To(Succeed())

			state, err := m.LoadSessionState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("is a no-op without a session file", func() {
			Expect(m.ClearSession(tmpDir)).To(Succeed())
		})
	})

	Describe("client sessions", func() {
		var srv *testutils.ChatServer

		BeforeEach(func() {
			srv = testutils.NewChatServer()
		})

		AfterEach(func() {
			srv.Close()
		})

		send := func(client *chat.Client, message string) {
			body, err := client.Send(context.Background(), message)
			Expect(err).NotTo(HaveOccurred())
			_, _ = io.Copy(io.Discard, body)
			Expect(body.Close()).To(Succeed())
		}

		It("saves nothing for a client without cookies", func() {
			Expect(m.SaveClientSession(chat.NewClient(srv.URL), tmpDir)).To(Succeed())
			Expect(filepath.Join(tmpDir, "session.json")).NotTo(BeAnExistingFile())
		})

		It("resumes the conversation of an earlier client", func() {
			first := chat.NewClient(srv.URL)
			send(first, "remember me")
			Expect(m.SaveClientSession(first, tmpDir)).To(Succeed())

			second := chat.NewClient(srv.URL)
			resumed, err := m.ResumeClientSession(second, tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(resumed).To(BeTrue())

			history, err := second.History(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))
			Expect(history[0].Text()).To(Equal("remember me"))
		})

		It("does not resume a session saved for another target", func() {
			Expect(m.SaveSession(&dotdir.SessionState{
				Target:  "http://elsewhere:5000",
				Cookies: []dotdir.SessionCookie{{Name: "session", Value: "s1"}},
			}, tmpDir)).To(Succeed())

			resumed, err := m.ResumeClientSession(chat.NewClient(srv.URL), tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(resumed).To(BeFalse())
		})
	})
})
