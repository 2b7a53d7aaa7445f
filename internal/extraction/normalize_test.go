package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NormalizeText", func() {
	It("should lowercase and collapse whitespace", func() {
		Expect(NormalizeText("  Two   EGGS\tand\n Milk ")).To(Equal("two eggs and milk"))
	})
})

var _ = Describe("SplitSegments", func() {
	It("should split on every separator", func() {
		Expect(SplitSegments("Milk, eggs; bread. Butter and JAM")).To(Equal([]string{"milk", "eggs", "bread", "butter", "jam"}))
	})

	It("should drop empty segments", func() {
		Expect(SplitSegments(",, milk ,;. and ")).To(Equal([]string{"milk"}))
	})

	It("should return a single segment when there are no separators", func() {
		Expect(SplitSegments("  Olive   Oil ")).To(Equal([]string{"olive oil"}))
	})

	It("should treat line breaks as separators", func() {
		Expect(SplitSegments("apples\r\npears\nplums")).To(Equal([]string{"apples", "pears", "plums"}))
	})

	It("should keep decimal points", func() {
		Expect(SplitSegments("1.5 kg flour. sugar")).To(Equal([]string{"1.5 kg flour", "sugar"}))
	})

	It("should not split words containing and", func() {
		Expect(SplitSegments("candy, sandwich bread")).To(Equal([]string{"candy", "sandwich bread"}))
	})

	It("should return nothing for blank input", func() {
		Expect(SplitSegments("   ")).To(BeEmpty())
	})
})

var _ = Describe("cleanLines", func() {
	It("should keep case and drop blank lines", func() {
		Expect(cleanLines("Joe's  Diner\r\n\r\n\tBurger\t 9.50  \n")).To(Equal([]string{"Joe's Diner", "Burger 9.50"}))
	})
})

var _ = Describe("foldName", func() {
	It("should strip diacritics and case", func() {
		Expect(foldName("José")).To(Equal("jose"))
		Expect(foldName(" ZOË ")).To(Equal("zoe"))
	})
})
