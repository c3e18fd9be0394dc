package export

import (
	"encoding/json"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestJSON_NilListBecomesEmptyArray(t *testing.T) {
	out, err := JSON(nil)
	if err != nil {
		t.Fatalf("JSON(nil) error = %v", err)
	}
	if strings.TrimSpace(string(out)) != "[]" {
		t.Errorf("JSON(nil) = %s, want []", out)
	}
}

func TestJSON_FieldShape(t *testing.T) {
	list := []core.Transaction{
		{
			ID:          "t1",
			Date:        "2024-03-15",
			Type:        core.Income,
			Category:    "Salary",
			Description: "March",
			Amount:      core.Money{Cents: 500000},
			UserID:      "secret-owner",
		},
	}

	out, err := JSON(list)
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("decoded %d records, want 1", len(decoded))
	}

	rec := decoded[0]
	if rec["id"] != "t1" || rec["date"] != "2024-03-15" || rec["type"] != "income" {
		t.Errorf("unexpected field values: %v", rec)
	}
	if rec["amount"] != float64(5000) {
		t.Errorf("amount = %v, want 5000", rec["amount"])
	}
	if _, leaked := rec["UserID"]; leaked {
		t.Error("owner id must not appear in exports")
	}
}

func TestCSV(t *testing.T) {
	list := []core.Transaction{
		{
			ID:          "t1",
			Date:        "2024-03-15",
			Type:        core.Expense,
			Category:    "Food",
			Description: `He said "hi"`,
			Amount:      core.Money{Cents: 1234},
		},
	}

	got := string(CSV(list))
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("CSV() has %d lines, want 2", len(lines))
	}
	if lines[0] != "id,date,type,category,description,amount" {
		t.Errorf("header = %q", lines[0])
	}
	want := `t1,2024-03-15,expense,"Food","He said ""hi""",12.34`
	if lines[1] != want {
		t.Errorf("row = %q, want %q", lines[1], want)
	}
}

func TestCSV_WholeAmountsHaveNoDecimals(t *testing.T) {
	list := []core.Transaction{
		{ID: "t1", Date: "2024-01-01", Type: core.Income, Category: "Salary", Amount: core.Money{Cents: 500000}},
	}
	got := string(CSV(list))
	if !strings.HasSuffix(got, ",5000") {
		t.Errorf("CSV row should end with bare 5000, got %q", got)
	}
}

func TestCSV_EmptyList(t *testing.T) {
	got := string(CSV(nil))
	if got != "id,date,type,category,description,amount" {
		t.Errorf("CSV(nil) = %q, want header only", got)
	}
}
