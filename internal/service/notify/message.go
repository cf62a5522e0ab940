package notify

import (
	"fmt"
	"strings"

	"github.com/siea/ricequote/internal/domain/models"
)

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"AED": "د.إ",
}

func symbol(code string) string {
	if s, ok := currencySymbols[code]; ok {
		return s
	}
	return code + " "
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// QuoteMessage renders the prefilled chat message a customer sends after submitting.
func QuoteMessage(q models.Quote) string {
	var sb strings.Builder
	c := q.Customer
	sh := q.Shipping
	sym := symbol(q.Currency)

	if q.Kind == models.QuoteKindCart {
		fmt.Fprintf(&sb, "*Cart Order Request %s*\n\n", q.QuoteID)
	} else {
		fmt.Fprintf(&sb, "*Quotation Request %s*\n\n", q.QuoteID)
	}

	sb.WriteString("1. *Customer Information*\n")
	fmt.Fprintf(&sb, " - Full Name: %s\n", c.FullName)
	fmt.Fprintf(&sb, " - Email: %s\n", c.Email)
	fmt.Fprintf(&sb, " - Phone: %s\n", c.FullPhone())
	fmt.Fprintf(&sb, " - Address: %s, %s, %s, %s - %s\n\n", c.Street, c.City, c.State, c.Country, c.Pincode)

	if q.Cart != nil {
		sb.WriteString("2. *Order Type*\n")
		sb.WriteString(" - Type: Shopping Cart Order\n")
		for _, line := range q.Cart.Lines {
			name := line.ProductName
			if name == "" {
				name = line.ProductID
			}
			fmt.Fprintf(&sb, " - %s (%s) %d x %d x %s: %s%s\n",
				name, line.Grade, line.NumberOfBags, line.Quantity, line.QuantityUnit, sym, line.Subtotal.StringFixed(2))
		}
	} else if q.Single != nil {
		sb.WriteString("2. *Product Details*\n")
		fmt.Fprintf(&sb, " - Variety: %s\n", q.Single.ProductName)
		fmt.Fprintf(&sb, " - Grade: %s\n", q.Single.Grade)
		fmt.Fprintf(&sb, " - Quantity: %s\n", q.Single.QuantityUnit)
	}
	fmt.Fprintf(&sb, " - Packing: %s\n", sh.Packing)
	if sh.SourceState != "" {
		fmt.Fprintf(&sb, " - State: %s\n", sh.SourceState)
	}
	if sh.Port != "" {
		fmt.Fprintf(&sb, " - Port: %s\n", sh.Port)
	}
	fmt.Fprintf(&sb, " - CIF: %s\n", yesNo(sh.CIF))
	fmt.Fprintf(&sb, " - Currency: %s\n\n", q.Currency)

	sb.WriteString("3. *Customization*\n")
	fmt.Fprintf(&sb, " - Custom Logo: %s\n\n", yesNo(sh.CustomLogo))

	sb.WriteString("4. *Pricing Breakdown*\n")
	writeBreakdown(&sb, q, sym)

	sb.WriteString("5. *Additional Information*\n")
	if q.AdditionalInfo != "" {
		fmt.Fprintf(&sb, " %s\n\n", q.AdditionalInfo)
	} else {
		sb.WriteString(" None\n\n")
	}
	fmt.Fprintf(&sb, "Thank you.\n\nBest regards,\n%s", c.FullName)
	return sb.String()
}

func writeBreakdown(sb *strings.Builder, q models.Quote, sym string) {
	b := q.Breakdown
	if q.PriceOnRequest || b == nil {
		sb.WriteString(" - Price: on request\n\n")
		return
	}

	if !b.Estimated {
		fmt.Fprintf(sb, " - Grade Price: %s%s per quintal\n", sym, b.BasePrice.StringFixed(2))
	}
	fmt.Fprintf(sb, " - Packing Price: %s%s\n", sym, b.PackingPrice.StringFixed(2))
	fmt.Fprintf(sb, " - Quantity Price: %s%s\n", sym, b.QuantityPrice.StringFixed(2))
	if b.BrandingPrice.IsPositive() {
		fmt.Fprintf(sb, " - Branding: %s%s\n", sym, b.BrandingPrice.StringFixed(2))
	}
	term := "FOB"
	if q.Shipping.CIF {
		term = "CIF"
		fmt.Fprintf(sb, " - Insurance Price: %s%s\n", sym, b.InsurancePrice.StringFixed(2))
		fmt.Fprintf(sb, " - Freight Price: %s%s\n", sym, b.FreightPrice.StringFixed(2))
		switch b.TransportStatus {
		case models.TransportAvailable:
			if b.TransportTotal.IsPositive() {
				fmt.Fprintf(sb, " - Transport Price: %s%s per quintal (%s%s total)\n",
					sym, b.TransportPricePerUnit.StringFixed(2), sym, b.TransportTotal.StringFixed(2))
			}
		case models.TransportUnavailable:
			sb.WriteString(" - Transport Price: not available for this route\n")
		}
	}
	fmt.Fprintf(sb, " - Total Price: %s%s (%s)\n", sym, b.GrandTotal.StringFixed(2), term)
	if b.Estimated {
		sb.WriteString(" - Freight and transport are estimated\n")
	}
	sb.WriteString("\n")
}
