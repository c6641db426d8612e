package replaycmder_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	replaycmder "github.com/papercomputeco/parley/cmd/parley/replay"
	"github.com/papercomputeco/parley/pkg/stream"
	testutils "github.com/papercomputeco/parley/pkg/utils/test"
)

var _ = Describe("Replay command", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
		errOut *bytes.Buffer
	)

	run := func(stdin string, args ...string) error {
		root := &cobra.Command{Use: "parley", SilenceErrors: true, SilenceUsage: true}
		root.PersistentFlags().BoolP("debug", "d", false, "")
		root.PersistentFlags().String("config-dir", tmpDir, "")
		root.AddCommand(replaycmder.NewReplayCmd())
		root.SetIn(strings.NewReader(stdin))
		root.SetOut(out)
		root.SetErr(errOut)
		root.SetArgs(append([]string{"replay"}, args...))
		return root.Execute()
	}

	write := func(name, content string) string {
		path := filepath.Join(tmpDir, name)
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "parley-replay-test-*")
		Expect(err).NotTo(HaveOccurred())
		out = &bytes.Buffer{}
		errOut = &bytes.Buffer{}
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("prints the markup of each recorded reply", func() {
		path := write("session.sse", testutils.Stream("Hel", "lo")+testutils.Stream("**bye**"))

		Expect(run("", path)).To(Succeed())

		text := ansi.Strip(out.String())
		Expect(text).To(Equal("1.\n<p>Hello</p>\n\n2.\n<p><strong>bye</strong></p>\n\nStatus: connected\n"))
	})

	It("reads stdin for -", func() {
		Expect(run(testutils.Stream("hi"), "-")).To(Succeed())
		Expect(ansi.Strip(out.String())).To(ContainSubstring("<p>hi</p>"))
	})

	It("renders terminal text with --term", func() {
		path := write("session.sse", testutils.Stream("1. one\n2. two"))

		Expect(run("", "--term", path)).To(Succeed())
		Expect(ansi.Strip(out.String())).To(ContainSubstring("1. one\n2. two"))
	})

	It("applies error records like a live turn", func() {
		path := write("session.sse", testutils.Record("chunk", "partial")+testutils.Record("error", "overloaded"))

		Expect(run("", path)).To(Succeed())

		text := ansi.Strip(out.String())
		Expect(text).To(ContainSubstring("<p>overloaded</p>"))
		Expect(text).To(ContainSubstring("Status: disconnected"))
	})

	It("logs skipped records with --debug", func() {
		path := write("session.sse", "data: {not json}\n"+testutils.Stream("ok"))

		Expect(run("", "--debug", path)).To(Succeed())
		Expect(ansi.Strip(out.String())).To(ContainSubstring("<p>ok</p>"))
		Expect(errOut.String()).To(ContainSubstring("skipping stream line"))
	})

	It("skips an oversized record", func() {
		path := write("session.sse", "data: "+strings.Repeat("x", 2<<20)+"\n"+testutils.Stream("ok"))

		Expect(run("", path)).To(Succeed())
		text := ansi.Strip(out.String())
		Expect(text).To(ContainSubstring("<p>ok</p>"))
		Expect(text).To(ContainSubstring("Status: connected"))
	})

	It("reports a stream failure", func() {
		// Reading a directory fails after it opens.
		err := run("", tmpDir)
		Expect(err).To(MatchError(stream.ErrStreamFailed))
		Expect(ansi.Strip(out.String())).To(ContainSubstring("Status: disconnected"))
	})

	It("fails on a missing file", func() {
		Expect(run("", filepath.Join(tmpDir, "missing.sse"))).To(MatchError(ContainSubstring("opening recording")))
	})

	It("requires a file argument", func() {
		Expect(run("")).NotTo(Succeed())
	})
})
