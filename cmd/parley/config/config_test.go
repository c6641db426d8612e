package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/parley/cmd/parley/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	// run executes the config command with a --config-dir pointing at tmpDir,
	// the way the root command provides it.
	run := func(args ...string) error {
		root := &cobra.Command{Use: "parley"}
		root.PersistentFlags().String("config-dir", tmpDir, "")
		root.AddCommand(configcmder.NewConfigCmd())
		root.SetOut(out)
		root.SetErr(out)
		root.SetArgs(append([]string{"config"}, args...))
		return root.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "parley-config-test-*")
		Expect(err).NotTo(HaveOccurred())
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(run("set", "client.target", "http://chat:5000")).To(Succeed())
			Expect(filepath.Join(tmpDir, "config.toml")).To(BeARegularFile())
			Expect(ansi.Strip(out.String())).To(ContainSubstring("Set client.target = http://chat:5000"))
		})

		It("rejects unknown keys", func() {
			Expect(run("set", "invalid_key", "value")).NotTo(Succeed())
		})

		It("requires exactly two arguments", func() {
			Expect(run("set", "client.target")).NotTo(Succeed())
		})

		It("rejects zero arguments", func() {
			Expect(run("set")).NotTo(Succeed())
		})

		It("rejects invalid uint values", func() {
			Expect(run("set", "render.width", "wide")).NotTo(Succeed())
		})

		It("rejects invalid durations", func() {
			Expect(run("set", "client.timeout", "later")).NotTo(Succeed())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(run("set", "chat.greeting", "Welcome back")).To(Succeed())
			out.Reset()

			Expect(run("get", "chat.greeting")).To(Succeed())
			Expect(ansi.Strip(out.String())).To(ContainSubstring("chat.greeting  Welcome back"))
		})

		It("shows defaults for unset keys", func() {
			Expect(run("get", "client.target")).To(Succeed())
			Expect(ansi.Strip(out.String())).To(ContainSubstring("http://127.0.0.1:5000"))
		})

		It("marks empty values as not set", func() {
			Expect(run("get", "render.width")).To(Succeed())
			Expect(ansi.Strip(out.String())).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			Expect(run("get", "invalid_key")).NotTo(Succeed())
		})

		It("requires exactly one argument", func() {
			Expect(run("get")).NotTo(Succeed())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(run("list")).To(Succeed())

			text := out.String()
			for _, key := range []string{"client.target", "client.timeout", "chat.greeting", "chat.fallback", "render.width", "render.markdown"} {
				Expect(text).To(ContainSubstring(key))
			}
		})

		It("shows set values", func() {
			Expect(run("set", "render.markdown", "true")).To(Succeed())
			out.Reset()

			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(MatchRegexp(`render\.markdown\s+true`))
		})

		It("rejects any arguments", func() {
			Expect(run("list", "extra")).NotTo(Succeed())
		})
	})
})
