package stream_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/stream"
)

const helloStream = "data: {\"type\":\"chunk\",\"content\":\"Hel\"}\n\n" +
	"data: {\"type\":\"chunk\",\"content\":\"lo\"}\n\n" +
	"data: {\"type\":\"complete\"}\n\n"

// chunkReader returns at most a random number of bytes per Read.
type chunkReader struct {
	src io.Reader
	rng *rand.Rand
	max int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	n := 1 + c.rng.IntN(c.max)
	if n > len(p) {
		n = len(p)
	}
	return c.src.Read(p[:n])
}

func collect(r io.Reader, opts ...stream.Option) ([]stream.Event, error) {
	var events []stream.Event
	for ev, err := range stream.NewIngestor(r, opts...).All() {
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

var _ = Describe("Ingestor", func() {
	Describe("Next", func() {
		It("yields chunk, chunk, complete in order", func() {
			ing := stream.NewIngestor(strings.NewReader(helloStream))

			ev, err := ing.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(Equal(stream.Chunk("Hel")))

			ev, err = ing.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(Equal(stream.Chunk("lo")))

			ev, err = ing.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(Equal(stream.Complete()))

			_, err = ing.Next()
			Expect(err).To(MatchError(io.EOF))
		})

		It("keeps returning io.EOF once exhausted", func() {
			ing := stream.NewIngestor(strings.NewReader(""))

			_, err := ing.Next()
			Expect(err).To(MatchError(io.EOF))
			_, err = ing.Next()
			Expect(err).To(MatchError(io.EOF))
		})

		It("yields an error event with its content", func() {
			events, err := collect(strings.NewReader("data: {\"type\":\"error\",\"content\":\"rate limited\"}\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(Equal([]stream.Event{stream.Error("rate limited")}))
		})

		It("decodes a missing content as empty text", func() {
			events, err := collect(strings.NewReader("data: {\"type\":\"chunk\"}\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(Equal([]stream.Event{stream.Chunk("")}))
		})

		It("skips malformed lines without aborting", func() {
			input := "data: not json\n" +
				"event: message\n" +
				"data: [1,2,3]\n" +
				"data: {\"content\":\"no type\"}\n" +
				"data: {\"type\":\"weird\",\"content\":\"x\"}\n" +
				"data: {\"type\":\"chunk\",\"content\":5}\n" +
				"data:{\"type\":\"chunk\",\"content\":\"no space\"}\n" +
				"data: {\"type\":\"chunk\",\"content\":\"ok\"}\n" +
				"data: {\"type\":\"complete\"}\n"

			ing := stream.NewIngestor(strings.NewReader(input))
			var events []stream.Event
			for ev, err := range ing.All() {
				Expect(err).NotTo(HaveOccurred())
				events = append(events, ev)
			}

			Expect(events).To(Equal([]stream.Event{stream.Chunk("ok"), stream.Complete()}))
			Expect(ing.Skipped()).To(Equal(7))
		})

		It("handles CRLF line endings", func() {
			input := strings.ReplaceAll(helloStream, "\n", "\r\n")
			events, err := collect(strings.NewReader(input))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(Equal([]stream.Event{stream.Chunk("Hel"), stream.Chunk("lo"), stream.Complete()}))
		})

		It("decodes an unterminated final line", func() {
			events, err := collect(strings.NewReader("data: {\"type\":\"chunk\",\"content\":\"tail\"}"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(Equal([]stream.Event{stream.Chunk("tail")}))
		})

		It("preserves newlines and unicode inside content", func() {
			events, err := collect(strings.NewReader("data: {\"type\":\"chunk\",\"content\":\"a\\nb \\u2022 c\"}\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(Equal([]stream.Event{stream.Chunk("a\nb • c")}))
		})
	})

	Describe("chunk split invariance", func() {
		It("yields the same events when read one byte at a time", func() {
			whole, err := collect(strings.NewReader(helloStream))
			Expect(err).NotTo(HaveOccurred())

			split, err := collect(iotest.OneByteReader(strings.NewReader(helloStream)))
			Expect(err).NotTo(HaveOccurred())
			Expect(split).To(Equal(whole))
		})

		It("yields the same events for random read sizes", func() {
			var b strings.Builder
			for i := range 200 {
				if i%7 == 0 {
					b.WriteString("garbage line\n")
				}
				b.WriteString("data: {\"type\":\"chunk\",\"content\":\"part ")
				b.WriteString(strings.Repeat("x", i%13))
				b.WriteString("\"}\r\n\n")
			}
			b.WriteString("data: {\"type\":\"complete\"}")
			input := b.String()

			whole, err := collect(strings.NewReader(input))
			Expect(err).NotTo(HaveOccurred())
			Expect(whole).To(HaveLen(201))

			for seed := range uint64(10) {
				r := &chunkReader{
					src: strings.NewReader(input),
					rng: rand.New(rand.NewPCG(seed, seed+1)),
					max: 17,
				}
				split, err := collect(r)
				Expect(err).NotTo(HaveOccurred())
				Expect(split).To(Equal(whole), "seed %d", seed)
			}
		})
	})

	Describe("transport failure", func() {
		var boom error

		BeforeEach(func() {
			boom = errors.New("connection reset by peer")
		})

		It("surfaces a read error as a stream failure after prior events", func() {
			r := io.MultiReader(
				strings.NewReader("data: {\"type\":\"chunk\",\"content\":\"Hel\"}\n"),
				iotest.ErrReader(boom),
			)
			ing := stream.NewIngestor(r)

			ev, err := ing.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(Equal(stream.Chunk("Hel")))

			_, err = ing.Next()
			Expect(err).To(MatchError(stream.ErrStreamFailed))
			Expect(errors.Is(err, boom)).To(BeTrue())

			var failed *stream.FailedError
			Expect(errors.As(err, &failed)).To(BeTrue())
			Expect(failed.Status).To(BeZero())

			_, again := ing.Next()
			Expect(again).To(Equal(err))
		})

		It("skips an oversized record and keeps reading", func() {
			long := "data: {\"type\":\"chunk\",\"content\":\"" + strings.Repeat("x", 1024*1024) + "\"}\n"
			ing := stream.NewIngestor(strings.NewReader(long + helloStream))

			var events []stream.Event
			for ev, err := range ing.All() {
				Expect(err).NotTo(HaveOccurred())
				events = append(events, ev)
			}
			Expect(events).To(Equal([]stream.Event{stream.Chunk("Hel"), stream.Chunk("lo"), stream.Complete()}))
			Expect(ing.Skipped()).To(Equal(1))
		})

		It("never yields a failure as an event", func() {
			events, err := collect(iotest.ErrReader(boom))
			Expect(events).To(BeEmpty())
			Expect(err).To(MatchError(stream.ErrStreamFailed))
		})
	})

	Describe("All", func() {
		It("stops when the consumer breaks", func() {
			ing := stream.NewIngestor(strings.NewReader(helloStream))

			for ev := range ing.All() {
				Expect(ev).To(Equal(stream.Chunk("Hel")))
				break
			}

			ev, err := ing.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(Equal(stream.Chunk("lo")))
		})
	})

	Describe("WithTee", func() {
		It("records a stream that replays to the same events", func() {
			var rec bytes.Buffer
			live, err := collect(strings.NewReader(helloStream+"noise\n"), stream.WithTee(&rec))
			Expect(err).NotTo(HaveOccurred())

			replayed, err := collect(&rec)
			Expect(err).NotTo(HaveOccurred())
			Expect(replayed).To(Equal(live))
		})
	})
})

var _ = Describe("Ingest", func() {
	It("delivers every event to the sink in order", func() {
		var kinds []stream.Kind
		err := stream.Ingest(context.Background(), strings.NewReader(helloStream), func(ev stream.Event) error {
			kinds = append(kinds, ev.Kind)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(kinds).To(Equal([]stream.Kind{stream.KindChunk, stream.KindChunk, stream.KindComplete}))
	})

	It("returns the sink error and stops", func() {
		stop := errors.New("stop")
		calls := 0
		err := stream.Ingest(context.Background(), strings.NewReader(helloStream), func(stream.Event) error {
			calls++
			return stop
		})
		Expect(err).To(MatchError(stop))
		Expect(calls).To(Equal(1))
	})

	It("fails when the context is already done", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := stream.Ingest(ctx, strings.NewReader(helloStream), func(stream.Event) error {
			Fail("sink should not be called")
			return nil
		})
		Expect(err).To(MatchError(stream.ErrStreamFailed))
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})
})
