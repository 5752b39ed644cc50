package cliui_test

import (
	"bytes"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/glyph/pkg/cliui"
)

var _ = Describe("cliui", func() {
	DescribeTable("FormatDuration",
		func(d time.Duration, want string) {
			Expect(cliui.FormatDuration(d)).To(Equal(want))
		},
		Entry("milliseconds", 12*time.Millisecond, "12ms"),
		Entry("seconds", 3200*time.Millisecond, "3.2s"),
	)

	It("formats rates with two decimals", func() {
		Expect(cliui.FormatRate(1234.5678)).To(Equal("1234.57/sec"))
	})

	It("marks errors", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
	})

	Describe("KeyValues", func() {
		It("writes one line per pair", func() {
			var buf bytes.Buffer
			cliui.KeyValues(&buf,
				cliui.Pair{Key: "sent", Value: "100"},
				cliui.Pair{Key: "throughput", Value: "12.00/sec"},
			)

			lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
			Expect(lines).To(HaveLen(2))
			Expect(lines[0]).To(ContainSubstring("sent:"))
			Expect(lines[0]).To(ContainSubstring("100"))
			Expect(lines[1]).To(ContainSubstring("12.00/sec"))
		})

		It("pads shorter keys to the widest key", func() {
			var buf bytes.Buffer
			cliui.KeyValues(&buf,
				cliui.Pair{Key: "a", Value: "1"},
				cliui.Pair{Key: "abcd", Value: "2"},
			)
			Expect(buf.String()).To(ContainSubstring("   " + "  " + cliui.ValueStyle.Render("1")))
		})
	})

	Describe("Step", func() {
		It("returns fn's error and prints the message", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")

			err := cliui.Step(&buf, "connecting", func() error { return boom })
			Expect(err).To(MatchError(boom))
			Expect(buf.String()).To(ContainSubstring("connecting"))
			Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
		})

		It("ends with the elapsed time on its own line", func() {
			var buf bytes.Buffer
			Expect(cliui.Step(&buf, "scanning", func() error { return nil })).To(Succeed())
			Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
			Expect(buf.String()).To(HaveSuffix("\n"))
		})
	})
})
