package classifier

import "testing"

func TestClassify(t *testing.T) {
	c := NewDefault()

	tests := []struct {
		name        string
		description string
		want        string
	}{
		{"single keyword", "Lunch at Pizza Hut", "Food"},
		{"case insensitive", "UBER TRIP", "Transportation"},
		{"no keyword", "Birthday gift for mom", Other},
		{"empty description", "", Other},
		{"substring match", "Cafeteria lunch", "Food"},
		{"income beats food", "Salary deposit for groceries", "Income"},
		{"income beats shopping", "store refund", "Income"},
		{"earlier rule wins", "Netflix on my phone", "Bills"},
		{"bills", "Monthly rent", "Bills"},
		{"entertainment", "Concert tickets", "Entertainment"},
		{"healthcare", "Dental cleaning", "Healthcare"},
		{"shopping", "Amazon order", "Shopping"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.description); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.description, got, tt.want)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewDefault()
	first := c.Classify("Starbucks and gas")
	for i := 0; i < 100; i++ {
		if got := c.Classify("Starbucks and gas"); got != first {
			t.Fatalf("iteration %d returned %q, first call returned %q", i, got, first)
		}
	}
	if first != "Food" {
		t.Fatalf("expected Food (first matching rule), got %q", first)
	}
}

func TestResultAlwaysInVocabulary(t *testing.T) {
	c := NewDefault()
	for _, desc := range []string{"x", "payroll", "metro card", "walmart", "zzz", "Doctor visit"} {
		if got := c.Classify(desc); !c.Known(got) {
			t.Errorf("Classify(%q) = %q, not in %v", desc, got, c.Categories())
		}
	}
}

func TestNewCopiesRules(t *testing.T) {
	rules := []Rule{{Category: "Pets", Keywords: []string{"Vet", " "}}}
	c := New(rules)

	rules[0].Category = "Mutated"
	rules[0].Keywords[0] = "nothing"

	if got := c.Classify("vet bill"); got != "Pets" {
		t.Fatalf("Classify() = %q, want Pets", got)
	}
	if got := c.Classify("anything"); got != Other {
		t.Fatalf("blank keyword must not match everything, got %q", got)
	}
}

func TestCategories(t *testing.T) {
	cats := NewDefault().Categories()
	if cats[0] != "Income" {
		t.Errorf("first category = %q, want Income", cats[0])
	}
	if cats[len(cats)-1] != Other {
		t.Errorf("last category = %q, want %q", cats[len(cats)-1], Other)
	}
	if len(cats) != 8 {
		t.Errorf("len(Categories()) = %d, want 8", len(cats))
	}
}
