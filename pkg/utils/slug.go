package utils

import (
	"github.com/gosimple/slug"
)

// NormalizeSlug creates a URL-friendly slug using the gosimple/slug
// library, which handles all Unicode characters properly.
func NormalizeSlug(text string) string {
	if text == "" {
		return ""
	}
	return slug.Make(text)
}

// GeneratePropertySlug creates a slug for a property from its address
// and borough.
func GeneratePropertySlug(address, borough string) string {
	if address == "" {
		address = "property"
	}

	text := address
	if borough != "" {
		text += " " + borough
	}
	return NormalizeSlug(text)
}

// GenerateCategorySlug creates a slug for a service category name.
func GenerateCategorySlug(name string) string {
	if name == "" {
		return "category"
	}
	return NormalizeSlug(name)
}
