package core

import (
	"sort"
	"strings"
)

// CategoriesForType returns the categories valid for transactions of type t:
// those whose kind is "both" or equals t. Order is preserved.
func CategoriesForType(cats []Category, t TransactionType) []Category {
	out := make([]Category, 0, len(cats))
	for _, c := range cats {
		if c.Kind.Matches(t) {
			out = append(out, c)
		}
	}
	return out
}

// FindCategoryByName looks a category up by trimmed, case-insensitive name.
func FindCategoryByName(cats []Category, name string) (Category, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range cats {
		if strings.ToLower(strings.TrimSpace(c.Name)) == name {
			return c, true
		}
	}
	return Category{}, false
}

// CheckDuplicateName is the create-time guard: it returns
// ErrDuplicateCategory when a category with the same trimmed,
// case-insensitive name already exists, regardless of kind. The check is
// check-then-insert, not transactional.
func CheckDuplicateName(cats []Category, name string) error {
	if _, ok := FindCategoryByName(cats, name); ok {
		return ErrDuplicateCategory
	}
	return nil
}

// SortTransactions orders newest first by (date desc, createdAt desc),
// matching the store-side ordering invariant. Used by stores that assemble
// snapshots from unordered data.
func SortTransactions(list []Transaction) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date > list[j].Date
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

// SortCategories orders by name ascending, case-insensitively, matching the
// category store's snapshot ordering.
func SortCategories(cats []Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		return strings.ToLower(cats[i].Name) < strings.ToLower(cats[j].Name)
	})
}
