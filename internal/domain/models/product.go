package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is the monetary representation used across the engine.
type Money = decimal.Decimal

// Grade is a quality tier of a product with its own per-kilogram price.
type Grade struct {
	Label      string `bson:"grade" json:"grade"`
	PricePerKg Money  `bson:"price_inr" json:"price_inr"`
	Harvest    string `bson:"harvest,omitempty" json:"harvest,omitempty"`
	Origin     string `bson:"origin,omitempty" json:"origin,omitempty"`
	Stock      string `bson:"stock,omitempty" json:"stock,omitempty"`
	MOQ        int    `bson:"moq" json:"moq"`
}

// Priced reports whether the grade carries a usable price.
func (g Grade) Priced() bool {
	return g.PricePerKg.IsPositive()
}

// KeyedGrade pairs a grade with its generated catalog key.
type KeyedGrade struct {
	Key   string
	Grade Grade
}

// Product is a catalog entry.
type Product struct {
	ID          string            `bson:"_id" json:"id"`
	Name        map[string]string `bson:"name" json:"name"`
	Description map[string]string `bson:"description,omitempty" json:"description,omitempty"`
	Category    string            `bson:"category,omitempty" json:"category,omitempty"`
	PriceRange  string            `bson:"price_range,omitempty" json:"price_range,omitempty"`
	HSN         string            `bson:"hsn,omitempty" json:"hsn,omitempty"`
	Grades      map[string]Grade  `bson:"grades,omitempty" json:"grades,omitempty"`
}

// SortGrades orders a key->grade mapping by key so that matching is deterministic.
func SortGrades(grades map[string]Grade) []KeyedGrade {
	out := make([]KeyedGrade, 0, len(grades))
	for k, g := range grades {
		out = append(out, KeyedGrade{Key: k, Grade: g})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// GradeList flattens the grades in key order.
func GradeList(grades map[string]Grade) []Grade {
	sorted := SortGrades(grades)
	out := make([]Grade, 0, len(sorted))
	for _, kg := range sorted {
		out = append(out, kg.Grade)
	}
	return out
}

// PutGrade sets the grade under key. A label already used by another key is rejected
// (labels compare case-insensitively).
func (p *Product) PutGrade(key string, grade Grade) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("grade key must not be empty")
	}
	if strings.TrimSpace(grade.Label) == "" {
		return fmt.Errorf("grade label must not be empty")
	}
	if grade.PricePerKg.IsNegative() {
		return fmt.Errorf("grade %q: price must not be negative", grade.Label)
	}
	if grade.MOQ < 0 {
		return fmt.Errorf("grade %q: moq must not be negative", grade.Label)
	}
	for k, existing := range p.Grades {
		if k != key && strings.EqualFold(strings.TrimSpace(existing.Label), strings.TrimSpace(grade.Label)) {
			return fmt.Errorf("grade label %q already used by %s", grade.Label, k)
		}
	}
	if p.Grades == nil {
		p.Grades = make(map[string]Grade)
	}
	p.Grades[key] = grade
	return nil
}
