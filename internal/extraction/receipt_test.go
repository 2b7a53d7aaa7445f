package extraction

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractMerchant", func() {
	var (
		lines    []string
		merchant *string
	)

	JustBeforeEach(func() {
		merchant = ExtractMerchant(lines)
	})

	When("the first line is a phone number", func() {
		BeforeEach(func() {
			lines = []string{"555-123-4567", "Joe's Diner", "123 Main St"}
		})

		It("should return the first qualifying line", func() {
			Expect(merchant).NotTo(BeNil())
			Expect(*merchant).To(Equal("Joe's Diner"))
		})
	})

	When("the merchant is beyond the third line", func() {
		BeforeEach(func() {
			lines = []string{"03/04/2024", "42 Elm Road", "ab", "Corner Shop"}
		})

		It("should return nil", func() {
			Expect(merchant).To(BeNil())
		})
	})

	When("blank lines come first", func() {
		BeforeEach(func() {
			lines = []string{"", "   ", "(555) 987-6543", "Green Grocer"}
		})

		It("should only count non-empty lines", func() {
			Expect(merchant).NotTo(BeNil())
			Expect(*merchant).To(Equal("Green Grocer"))
		})
	})

	When("a line is too long", func() {
		BeforeEach(func() {
			lines = []string{"This header line is far too long to be the name of a shop", "Bakery"}
		})

		It("should skip it", func() {
			Expect(merchant).NotTo(BeNil())
			Expect(*merchant).To(Equal("Bakery"))
		})
	})
})

var _ = Describe("ExtractLineItems", func() {
	var (
		lines []string
		items []string
	)

	JustBeforeEach(func() {
		items = ExtractLineItems(lines)
	})

	When("the receipt mixes items and totals", func() {
		BeforeEach(func() {
			lines = []string{
				"Burger 9.50",
				"Fries $3.00",
				"Coffee",
				"Tea",
				"SUBTOTAL 12.50",
				"Tax 1.00",
				"Total $13.50",
				"Card ending 4242",
				"Thank you!",
				"12/24/2024",
				"(555) 123-4567",
			}
		})

		It("should keep only the item lines, without prices", func() {
			Expect(items).To(Equal([]string{"Burger", "Fries", "Coffee"}))
		})
	})

	When("there are more than ten item lines", func() {
		BeforeEach(func() {
			lines = nil
			for i := 1; i <= 25; i++ {
				lines = append(lines, fmt.Sprintf("Item number %d $1.00", i))
			}
		})

		It("should return the first ten", func() {
			Expect(items).To(HaveLen(10))
			Expect(items[0]).To(Equal("Item number 1"))
			Expect(items[9]).To(Equal("Item number 10"))
		})
	})

	When("nothing qualifies", func() {
		BeforeEach(func() {
			lines = []string{"ok", "Total 5.00"}
		})

		It("should return an empty list", func() {
			Expect(items).NotTo(BeNil())
			Expect(items).To(BeEmpty())
		})
	})
})
