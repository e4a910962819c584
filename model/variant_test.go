package model_test

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/pktgen/model"
)

var _ = Describe("GenerateVariants", func() {
	It("yields a single variant when no capability is used", func() {
		variants, err := model.GenerateVariants("PACKET_X", []*model.Field{intField("a", nil, nil)})
		Expect(err).To(Succeed())
		Expect(variants).To(HaveLen(1))
		Expect(variants[0].No).To(Equal(100))
		Expect(variants[0].Name).To(Equal("packet_x_100"))
		Expect(variants[0].Condition()).To(Equal("true"))
	})

	It("enumerates subsets in bit order", func() {
		fields := []*model.Field{
			intField("base", nil, nil),
			intField("b", []string{"B"}, nil),
			intField("a", []string{"A"}, nil),
		}

		variants, err := model.GenerateVariants("PACKET_X", fields)
		Expect(err).To(Succeed())
		Expect(variants).To(HaveLen(4))

		var pos [][]string
		var nos []int
		for _, v := range variants {
			pos = append(pos, v.PosCaps)
			nos = append(nos, v.No)
		}

		Expect(pos).To(Equal([][]string{nil, {"A"}, {"B"}, {"A", "B"}}))
		Expect(nos).To(Equal([]int{100, 101, 102, 103}))
		Expect(variants[1].NegCaps).To(Equal([]string{"B"}))
		Expect(variants[3].Fields).To(HaveLen(3))
	})

	It("covers every field and produces 2^n variants", func() {
		fields := []*model.Field{
			intField("k", nil, nil),
			intField("a", []string{"c1"}, nil),
			intField("b", nil, []string{"c2"}),
			intField("c", []string{"c3"}, []string{"c1"}),
		}

		variants, err := model.GenerateVariants("PACKET_X", fields)
		Expect(err).To(Succeed())
		Expect(variants).To(HaveLen(8))

		seen := map[*model.Field]bool{}
		for _, v := range variants {
			for _, f := range v.Fields {
				seen[f] = true
			}
		}
		Expect(seen).To(HaveLen(len(fields)))
	})

	It("fails when a capability combination leaves no field", func() {
		fields := []*model.Field{intField("a", []string{"X"}, nil)}

		_, err := model.GenerateVariants("PACKET_X", fields)
		Expect(errors.Is(err, model.ErrEmptyVariant)).To(BeTrue())

		var perr *model.PacketError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.Packet).To(Equal("PACKET_X"))
	})

	It("rejects two same named fields in one variant", func() {
		fields := []*model.Field{intField("foo", nil, nil), intField("foo", []string{"X"}, nil)}

		_, err := model.GenerateVariants("PACKET_X", fields)
		Expect(errors.Is(err, model.ErrDuplicateField)).To(BeTrue())
	})

	Describe("Matches", func() {
		It("selects exactly one variant per capability string", func() {
			fields := []*model.Field{
				intField("k", nil, nil),
				intField("a", []string{"A"}, nil),
				intField("b", []string{"B"}, nil),
			}

			variants, err := model.GenerateVariants("PACKET_X", fields)
			Expect(err).To(Succeed())

			for _, caps := range []string{"", "A", "B", "+A B", "A,B other"} {
				matches := 0
				for _, v := range variants {
					if v.Matches(caps) {
						matches++
					}
				}
				Expect(matches).To(Equal(1), caps)
			}
		})
	})
})
