package workbench

import (
	"fmt"
	"strings"
)

// Category is one of the three operation kinds an initialized processor
// evaluates.
type Category int

const (
	Payload Category = iota
	Response
	Entity
)

var categoryNames = [...]string{
	Payload:  "payload",
	Response: "response",
	Entity:   "entity",
}

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{Payload, Response, Entity}
}

func (c Category) String() string {
	if c.valid() {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

func (c Category) valid() bool {
	return c >= 0 && int(c) < len(categoryNames)
}

// ParseCategory maps a category name (case-insensitive) to its Category.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if strings.EqualFold(s, name) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown category %q (expected payload, response or entity)", s)
}
