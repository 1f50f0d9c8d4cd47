// Package entity contains the core business objects of the project.
package entity

import (
	"fmt"
	"strings"
)

// Nutriments holds per-100g nutrition facts as reported by the product
// database. Field tags follow the Open Food Facts JSON schema.
type Nutriments struct {
	EnergyKcal100g    float64 `json:"energy-kcal_100g,omitempty"`
	Fat100g           float64 `json:"fat_100g,omitempty"`
	SaturatedFat100g  float64 `json:"saturated-fat_100g,omitempty"`
	Carbohydrates100g float64 `json:"carbohydrates_100g,omitempty"`
	Sugars100g        float64 `json:"sugars_100g,omitempty"`
	Fiber100g         float64 `json:"fiber_100g,omitempty"`
	Proteins100g      float64 `json:"proteins_100g,omitempty"`
	Salt100g          float64 `json:"salt_100g,omitempty"`
}

// Product is the metadata resolved for a scanned barcode.
type Product struct {
	Barcode     string     `json:"barcode"`
	ProductName string     `json:"product_name"`
	GenericName string     `json:"generic_name,omitempty"`
	Brands      string     `json:"brands,omitempty"`
	Quantity    string     `json:"quantity,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	NutriScore  string     `json:"nutriscore_grade,omitempty"`
	Nutriments  Nutriments `json:"nutriments"`
}

// HasUsableName reports whether the product carries a non-empty display
// name. Cached entries without one are treated as cache misses so a
// malformed entry cannot block a corrective re-fetch.
func (p *Product) HasUsableName() bool {
	return strings.TrimSpace(p.ProductName) != "" || strings.TrimSpace(p.GenericName) != ""
}

// NormalizeName fills ProductName from the best available fallback:
// the generic name, then a label synthesized from brand and barcode.
func (p *Product) NormalizeName() {
	if strings.TrimSpace(p.ProductName) != "" {
		return
	}
	if strings.TrimSpace(p.GenericName) != "" {
		p.ProductName = p.GenericName

		return
	}
	if strings.TrimSpace(p.Brands) != "" {
		p.ProductName = fmt.Sprintf("%s (%s)", p.Brands, p.Barcode)

		return
	}
	p.ProductName = fmt.Sprintf("Product %s", p.Barcode)
}
