package cliui_test

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("FormatDuration", func() {
		It("formats sub-second durations in milliseconds", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		})

		It("formats longer durations in seconds", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("Mark", func() {
		It("picks the mark by error", func() {
			Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
			Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
		})
	})

	Describe("Step", func() {
		It("returns the function's error and prints the result line", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")

			err := cliui.Step(&buf, "Checking service", func() error { return boom })
			Expect(err).To(MatchError(boom))
			Expect(ansi.Strip(buf.String())).To(ContainSubstring("✗ Checking service"))
		})

		It("prints nothing after the result line when fn returns at once", func() {
			for range 20 {
				var buf bytes.Buffer

				Expect(cliui.Step(&buf, "Clearing", func() error { return nil })).To(Succeed())
				time.Sleep(5 * time.Millisecond)

				Expect(buf.String()).To(HaveSuffix("\n"))
				Expect(strings.Count(ansi.Strip(buf.String()), "✓ Clearing")).To(Equal(1))
			}
		})
	})

	Describe("Typing", func() {
		It("stays inactive on a non-terminal writer", func() {
			var buf bytes.Buffer
			t := cliui.NewTyping(&buf, "typing")

			t.Start()
			t.Stop()
			Expect(t.Active()).To(BeFalse())
			Expect(buf.String()).To(BeEmpty())
		})
	})

	Describe("RenderMarkdown", func() {
		It("renders markdown text", func() {
			out, err := cliui.RenderMarkdown("# Title\n\nSome **bold** text.", 40)
			Expect(err).NotTo(HaveOccurred())
			Expect(ansi.Strip(out)).To(ContainSubstring("Title"))
			Expect(ansi.Strip(out)).To(ContainSubstring("bold"))
		})
	})
})
