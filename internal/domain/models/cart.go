package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// QuantityUnit enumerates the pack sizes a customer can pick.
type QuantityUnit string

const (
	Quantity5Kg   QuantityUnit = "5kg"
	Quantity10Kg  QuantityUnit = "10kg"
	Quantity25Kg  QuantityUnit = "25kg"
	Quantity50Kg  QuantityUnit = "50kg"
	Quantity100Kg QuantityUnit = "100kg"
	Quantity1Ton  QuantityUnit = "1ton"
)

// QuantityUnits lists every supported unit in display order.
var QuantityUnits = []QuantityUnit{Quantity5Kg, Quantity10Kg, Quantity25Kg, Quantity50Kg, Quantity100Kg, Quantity1Ton}

var kilogramsPerUnit = map[QuantityUnit]int64{
	Quantity5Kg:   5,
	Quantity10Kg:  10,
	Quantity25Kg:  25,
	Quantity50Kg:  50,
	Quantity100Kg: 100,
	Quantity1Ton:  1000,
}

// ParseQuantityUnit normalizes user input into a QuantityUnit.
func ParseQuantityUnit(value string) (QuantityUnit, error) {
	unit := QuantityUnit(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), " ", "")))
	if _, ok := kilogramsPerUnit[unit]; !ok {
		return "", fmt.Errorf("unsupported quantity %q", value)
	}
	return unit, nil
}

// Valid reports whether u is one of the enumerated units.
func (u QuantityUnit) Valid() bool {
	_, ok := kilogramsPerUnit[u]
	return ok
}

// Kilograms returns the weight the unit stands for; "1ton" is exactly 1000 kg.
// Unknown units weigh zero.
func (u QuantityUnit) Kilograms() decimal.Decimal {
	return decimal.NewFromInt(kilogramsPerUnit[u])
}

// Quintals returns the weight in 100 kg units.
func (u QuantityUnit) Quintals() decimal.Decimal {
	return u.Kilograms().Div(decimal.NewFromInt(100))
}

// CartLineItem is one line of a customer's cart.
//
// FrozenTotalPrice is captured when the line is added and never recomputed from the
// catalog. NumberOfBags multiplies it at checkout.
type CartLineItem struct {
	LineID           string       `bson:"line_id" json:"lineId"`
	ProductID        string       `bson:"product_id" json:"productId"`
	ProductName      string       `bson:"product_name,omitempty" json:"productName,omitempty"`
	Grade            string       `bson:"grade" json:"grade"`
	Packing          string       `bson:"packing,omitempty" json:"packing,omitempty"`
	QuantityUnit     QuantityUnit `bson:"quantity_unit" json:"quantityUnit"`
	Quantity         int          `bson:"quantity" json:"quantity"`
	NumberOfBags     int          `bson:"number_of_bags" json:"numberOfBags"`
	FrozenTotalPrice *Money       `bson:"frozen_total_price,omitempty" json:"frozenTotalPrice,omitempty"`
	DisplayPrice     string       `bson:"display_price,omitempty" json:"displayPrice,omitempty"`
	AddedAt          time.Time    `bson:"added_at" json:"addedAt"`
}

// Units returns the per-bag quantity, treating an unset quantity as one.
func (i CartLineItem) Units() int {
	if i.Quantity < 1 {
		return 1
	}
	return i.Quantity
}

// Bags returns the bag multiplier, treating an unset count as one.
func (i CartLineItem) Bags() int {
	if i.NumberOfBags < 1 {
		return 1
	}
	return i.NumberOfBags
}

// SameLine reports whether two items describe the same purchasable line.
func (i CartLineItem) SameLine(other CartLineItem) bool {
	return i.ProductID == other.ProductID &&
		strings.EqualFold(i.Grade, other.Grade) &&
		i.Packing == other.Packing &&
		i.QuantityUnit == other.QuantityUnit &&
		i.Units() == other.Units()
}

// Cart is the persisted cart of one owner.
type Cart struct {
	Owner     string         `bson:"_id" json:"owner"`
	Items     []CartLineItem `bson:"items" json:"items"`
	UpdatedAt time.Time      `bson:"updated_at" json:"updatedAt"`
}
