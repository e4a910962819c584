package protocol_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/pktgen/protocol"
)

var _ = Describe("HasCapability", func() {
	It("finds capabilities separated by spaces or commas", func() {
		Expect(protocol.HasCapability("b", "a b")).To(BeTrue())
		Expect(protocol.HasCapability("b", "a,b")).To(BeTrue())
		Expect(protocol.HasCapability("c", "a, b")).To(BeFalse())
	})

	It("ignores the mandatory marker", func() {
		Expect(protocol.HasCapability("a", "+a")).To(BeTrue())
	})

	It("does not match prefixes", func() {
		Expect(protocol.HasCapability("cap", "cap2")).To(BeFalse())
	})
})

var _ = Describe("CommonCapabilities", func() {
	It("keeps the local order", func() {
		Expect(protocol.CommonCapabilities("+cma, culture16 extra", "culture16 cma")).To(Equal("cma culture16"))
	})

	It("is empty without overlap", func() {
		Expect(protocol.CommonCapabilities("a b", "c")).To(BeEmpty())
	})
})
