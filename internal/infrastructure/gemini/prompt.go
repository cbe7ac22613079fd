package gemini

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pricespy/backend/internal/domain"
)

const basePrompt = `You are reading a screenshot of a product page in a web shop.
Return ONLY a JSON object with these fields:
- "product_name": string, the product title as shown
- "store_name": string or null
- "price": number, the price the customer pays now for the item shown (0 if not visible)
- "currency": ISO 4217 code such as "EUR", or "N/A" when no price is visible
- "is_available": boolean, false when the item is out of stock
- "original_price": number or null, the crossed-out price before a discount
- "deal_type": string or null, e.g. "percentage_off", "fixed_amount_off", "multibuy", "bogo", "1+1", "2 for 5"
- "discount_percentage": number or null
- "discount_fixed_amount": number or null
- "deal_description": string or null, the promotion text as shown
- "available_sizes": array of strings listing sizes in stock
- "is_size_matched": boolean, whether the price shown is for the requested size
- "is_blocked": boolean, true when a cookie wall, captcha or modal hides the price
- "blocking_type": string or null, what blocks the page
- "notes": string or null, anything unusual
Do not guess prices that are not visible.`

// BuildPrompt adds what is known about the tracked item to the base prompt
func BuildPrompt(item domain.TrackedItem) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nContext:\n")
	fmt.Fprintf(&b, "- Expected product: %s\n", item.ProductName)
	if item.Category != "" {
		fmt.Fprintf(&b, "- Category: %s\n", item.Category)
	}
	if item.StoreName != "" {
		fmt.Fprintf(&b, "- Store: %s\n", item.StoreName)
	}
	if p := item.Packaging; p.QuantitySize > 0 && p.QuantityUnit != "" {
		size := strconv.FormatFloat(p.QuantitySize, 'f', -1, 64)
		if p.ItemsPerLot > 1 {
			fmt.Fprintf(&b, "- Packaging: %d x %s %s\n", p.ItemsPerLot, size, p.QuantityUnit)
		} else {
			fmt.Fprintf(&b, "- Packaging: %s %s\n", size, p.QuantityUnit)
		}
	}
	if item.TargetSize != "" {
		fmt.Fprintf(&b, "- Requested size: %s. Report the price for this size and set is_size_matched accordingly.\n", item.TargetSize)
	}
	return b.String()
}
