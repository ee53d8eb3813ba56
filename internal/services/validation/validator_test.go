package validation

import (
	"testing"

	"statement-ingestion-backend/internal/extraction"
	"statement-ingestion-backend/internal/models"
	"statement-ingestion-backend/internal/period"
)

func testAccount() *models.BankAccount {
	return &models.BankAccount{
		CompanyName:   "Acme Traders Ltd",
		BankName:      "Equity Bank",
		AccountNumber: "0100234567",
		Currency:      "KES",
	}
}

func TestValidateAllClean(t *testing.T) {
	fields := &extraction.Fields{
		CompanyName:     "ACME TRADERS",
		BankName:        "Equity",
		AccountNumber:   "0100234567",
		Currency:        "Kshs",
		StatementPeriod: "January 2024",
	}
	report := Validate(fields, testAccount(), period.MonthYear{Month: 1, Year: 2024})
	if !report.IsValid {
		t.Fatalf("expected valid, got mismatches %+v", report.Mismatches)
	}
}

func TestValidateCollectsEachMismatch(t *testing.T) {
	fields := &extraction.Fields{
		CompanyName:     "Globex Corp",
		BankName:        "KCB",
		AccountNumber:   "555000111",
		Currency:        "USD",
		StatementPeriod: "March 2023",
	}
	report := Validate(fields, testAccount(), period.MonthYear{Month: 1, Year: 2024})
	if report.IsValid {
		t.Fatal("expected invalid report")
	}

	want := []string{"company_name", "bank_name", "account_number", "currency", "statement_period"}
	if len(report.Mismatches) != len(want) {
		t.Fatalf("got %d mismatches %+v, want %d", len(report.Mismatches), report.Mismatches, len(want))
	}
	for i, field := range want {
		if report.Mismatches[i].Field != field {
			t.Errorf("mismatch[%d].Field = %q, want %q", i, report.Mismatches[i].Field, field)
		}
	}
}

func TestValidateBankNameSentinelSkipped(t *testing.T) {
	for _, sentinel := range []string{"", "N/A", "Not Available", "-"} {
		fields := &extraction.Fields{BankName: sentinel}
		report := Validate(fields, testAccount(), period.MonthYear{Month: 1, Year: 2024})
		if !report.IsValid {
			t.Errorf("sentinel %q should skip the bank check, got %+v", sentinel, report.Mismatches)
		}
	}
}

func TestValidateCurrencyAliases(t *testing.T) {
	for _, spelling := range []string{"KSH", "Kshs", "K.SH"} {
		fields := &extraction.Fields{Currency: spelling}
		report := Validate(fields, testAccount(), period.MonthYear{Month: 1, Year: 2024})
		if !report.IsValid {
			t.Errorf("currency %q should match KES, got %+v", spelling, report.Mismatches)
		}
	}
}

func TestValidatePeriodContainment(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		target period.MonthYear
		valid  bool
	}{
		{"month name in year", "Statement for January 2024", period.MonthYear{Month: 1, Year: 2024}, true},
		{"range contains target", "01/01/2024 - 31/03/2024", period.MonthYear{Month: 2, Year: 2024}, true},
		{"range excludes target", "01/01/2024 - 31/03/2024", period.MonthYear{Month: 7, Year: 2024}, false},
		{"wrong year", "January 2023", period.MonthYear{Month: 1, Year: 2024}, false},
		{"unparseable is silent", "see attached schedule", period.MonthYear{Month: 1, Year: 2024}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := &extraction.Fields{StatementPeriod: tt.text}
			report := Validate(fields, testAccount(), tt.target)
			if report.IsValid != tt.valid {
				t.Errorf("period %q vs %+v: valid = %v, want %v", tt.text, tt.target, report.IsValid, tt.valid)
			}
		})
	}
}

func TestValidateNilInputs(t *testing.T) {
	if report := Validate(nil, testAccount(), period.MonthYear{}); !report.IsValid {
		t.Error("nil fields must validate clean")
	}
	if report := Validate(&extraction.Fields{}, nil, period.MonthYear{}); !report.IsValid {
		t.Error("nil account must validate clean")
	}
}
