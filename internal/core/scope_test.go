package core

import (
	"errors"
	"testing"
	"time"
)

func sampleCategories() []Category {
	return []Category{
		{ID: "c1", Name: "Food", Kind: KindExpense},
		{ID: "c2", Name: "Salary", Kind: KindIncome},
		{ID: "c3", Name: "Freelance", Kind: KindBoth},
		{ID: "c4", Name: "Rent", Kind: KindExpense},
	}
}

func TestCategoriesForType(t *testing.T) {
	cats := sampleCategories()

	income := CategoriesForType(cats, Income)
	if len(income) != 2 || income[0].Name != "Salary" || income[1].Name != "Freelance" {
		t.Errorf("CategoriesForType(Income) = %v, want [Salary Freelance]", income)
	}

	expense := CategoriesForType(cats, Expense)
	if len(expense) != 3 || expense[0].Name != "Food" || expense[1].Name != "Freelance" || expense[2].Name != "Rent" {
		t.Errorf("CategoriesForType(Expense) = %v, want [Food Freelance Rent]", expense)
	}
}

func TestFindCategoryByName(t *testing.T) {
	cats := sampleCategories()

	if c, ok := FindCategoryByName(cats, "  rent "); !ok || c.ID != "c4" {
		t.Errorf("FindCategoryByName(rent) = %v, %v; want c4, true", c, ok)
	}
	if _, ok := FindCategoryByName(cats, "Travel"); ok {
		t.Error("FindCategoryByName(Travel) should not match")
	}
}

func TestCheckDuplicateName(t *testing.T) {
	cats := sampleCategories()

	if err := CheckDuplicateName(cats, "rent"); !errors.Is(err, ErrDuplicateCategory) {
		t.Errorf("CheckDuplicateName(rent) = %v, want ErrDuplicateCategory", err)
	}
	if err := CheckDuplicateName(cats, " RENT "); !errors.Is(err, ErrDuplicateCategory) {
		t.Errorf("CheckDuplicateName( RENT ) = %v, want ErrDuplicateCategory", err)
	}
	if err := CheckDuplicateName(cats, "Travel"); err != nil {
		t.Errorf("CheckDuplicateName(Travel) = %v, want nil", err)
	}
}

func TestSortTransactions(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	list := []Transaction{
		{ID: "old", Date: "2024-02-01", CreatedAt: base},
		{ID: "same-day-early", Date: "2024-03-10", CreatedAt: base},
		{ID: "same-day-late", Date: "2024-03-10", CreatedAt: base.Add(time.Hour)},
		{ID: "newest", Date: "2024-03-15", CreatedAt: base},
	}

	SortTransactions(list)

	wantOrder := []string{"newest", "same-day-late", "same-day-early", "old"}
	for i, want := range wantOrder {
		if list[i].ID != want {
			t.Fatalf("SortTransactions() position %d = %s, want %s", i, list[i].ID, want)
		}
	}
}

func TestSortCategories(t *testing.T) {
	cats := []Category{
		{Name: "rent"},
		{Name: "Food"},
		{Name: "salary"},
	}
	SortCategories(cats)

	wantOrder := []string{"Food", "rent", "salary"}
	for i, want := range wantOrder {
		if cats[i].Name != want {
			t.Fatalf("SortCategories() position %d = %s, want %s", i, cats[i].Name, want)
		}
	}
}
