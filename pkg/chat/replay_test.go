package chat_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/format"
	"github.com/papercomputeco/parley/pkg/stream"
	testutils "github.com/papercomputeco/parley/pkg/utils/test"
)

var _ = Describe("Replay", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("returns one finalized message per completed reply", func() {
		rec := testutils.Stream("Hel", "lo") + testutils.Stream("**second**")

		msgs, status, err := chat.Replay(ctx, strings.NewReader(rec))
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(chat.StatusConnected))
		Expect(msgs).To(HaveLen(2))
		Expect(msgs[0].Markup).To(Equal(format.Format("Hello")))
		Expect(msgs[0].Finalized).NotTo(BeNil())
		Expect(msgs[1].Markup).To(Equal(format.Format("**second**")))
		Expect(msgs[0].ID).NotTo(Equal(msgs[1].ID))
	})

	It("keeps an unfinished reply", func() {
		msgs, status, err := chat.Replay(ctx, strings.NewReader(testutils.Record("chunk", "partial")))
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(chat.StatusConnected))
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Raw).To(Equal("partial"))
		Expect(msgs[0].Finalized).To(BeNil())
	})

	It("applies server errors", func() {
		msgs, status, err := chat.Replay(ctx, strings.NewReader(testutils.Record("error", "rate limited")))
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(chat.StatusDisconnected))
		Expect(msgs[0].Markup).To(Equal(format.Format("rate limited")))
	})

	It("returns nothing for an empty recording", func() {
		msgs, status, err := chat.Replay(ctx, strings.NewReader("\n: keep-alive\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(chat.StatusConnected))
		Expect(msgs).To(BeEmpty())
	})

	It("reports a broken recording", func() {
		r := io.MultiReader(strings.NewReader(testutils.Record("chunk", "a")), iotest.ErrReader(errors.New("bad disk")))

		msgs, status, err := chat.Replay(ctx, r)
		Expect(err).To(MatchError(stream.ErrStreamFailed))
		Expect(status).To(Equal(chat.StatusDisconnected))
		Expect(msgs).To(HaveLen(1))
	})
})
