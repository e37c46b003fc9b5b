package core

import "strings"

// Category is display metadata for a category name.
type Category struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// FallbackCategory is used for names missing from the registry.
const FallbackCategory = "Others"

// DefaultCategories is the read-only registry served to clients.
var DefaultCategories = []Category{
	{Name: "Food & Dining", Icon: "🍽️", Color: "#FF6B6B"},
	{Name: "Transportation", Icon: "🚗", Color: "#4ECDC4"},
	{Name: "Shopping", Icon: "🛍️", Color: "#FFD166"},
	{Name: "Entertainment", Icon: "🎬", Color: "#06D6A0"},
	{Name: "Bills & Utilities", Icon: "💡", Color: "#118AB2"},
	{Name: "Healthcare", Icon: "🏥", Color: "#EF476F"},
	{Name: "Education", Icon: "📚", Color: "#073B4C"},
	{Name: "Income", Icon: "💰", Color: "#2A9D8F"},
	{Name: FallbackCategory, Icon: "📝", Color: "#6C757D"},
}

// LookupCategory returns the registry entry for name (case-insensitive),
// falling back to the "Others" entry.
func LookupCategory(name string) Category {
	for _, c := range DefaultCategories {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c
		}
	}
	return DefaultCategories[len(DefaultCategories)-1]
}
