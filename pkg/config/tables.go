package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// RuleSpec is one category rule as declared in the rules YAML file.
// Declaration order matters: earlier rules win keyword ties.
type RuleSpec struct {
	Name     string   `yaml:"name"`
	Phrases  []string `yaml:"phrases"`
	Keywords []string `yaml:"keywords"`
}

// AccountMapSpec maps classifier categories to ledger account names.
type AccountMapSpec struct {
	Bank       string            `yaml:"bank"`
	Suspense   string            `yaml:"suspense"`
	Categories map[string]string `yaml:"categories"`
}

// TrainingSample is one labeled description used to train the model tier.
// Amount is optional, in major units.
type TrainingSample struct {
	Description string  `yaml:"description"`
	Direction   string  `yaml:"direction"`
	Amount      float64 `yaml:"amount"`
	Category    string  `yaml:"category"`
}

// LoadRules reads an ordered category rule table from a YAML file.
func LoadRules(path string) ([]RuleSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var doc struct {
		Categories []RuleSpec `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	return doc.Categories, nil
}

// LoadAccountMap reads the category-to-account mapping from a YAML file.
func LoadAccountMap(path string) (*AccountMapSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read account map: %w", err)
	}

	var doc struct {
		Accounts AccountMapSpec `yaml:"accounts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse account map: %w", err)
	}
	return &doc.Accounts, nil
}

// LoadTrainingSamples reads labeled samples for the learned model.
func LoadTrainingSamples(path string) ([]TrainingSample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read training samples: %w", err)
	}

	var doc struct {
		Training []TrainingSample `yaml:"training"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse training samples: %w", err)
	}
	return doc.Training, nil
}

// DefaultRules is the compiled-in rule table used when no rules file is
// supplied. Ordering encodes tie-break priority.
func DefaultRules() []RuleSpec {
	return []RuleSpec{
		{
			Name:     "Food",
			Phrases:  []string{"GROCERY MART", "SWIGGY", "ZOMATO"},
			Keywords: []string{"GROCERY", "RESTAURANT", "FOOD", "SWIGGY", "ZOMATO", "CAFE"},
		},
		{
			Name:     "Transport",
			Phrases:  []string{"IRCTC", "UBER", "OLA"},
			Keywords: []string{"UBER", "OLA", "IRCTC", "FUEL", "PETROL", "METRO CARD"},
		},
		{
			Name:     "Utilities",
			Keywords: []string{"ELECTRICITY", "WATER BILL", "BROADBAND", "RECHARGE", "DTH", "GAS"},
		},
		{
			Name:     "Rent",
			Keywords: []string{"RENT", "LANDLORD"},
		},
		{
			Name:     "Salary",
			Keywords: []string{"SALARY", "PAYROLL", "WAGES"},
		},
		{
			Name:     "Cash",
			Phrases:  []string{"ATM WITHDRAWAL"},
			Keywords: []string{"ATM", "CASH WDL", "CASH WITHDRAWAL", "SELF CHEQUE"},
		},
		{
			Name:     "Bank Charges",
			Keywords: []string{"CHARGES", "SMS ALERT", "MIN BAL", "ANNUAL FEE", "GST"},
		},
		{
			Name:     "Interest Income",
			Keywords: []string{"INTEREST", "INT.PD", "INT CREDIT"},
		},
	}
}

// DefaultAccountMap is the compiled-in account mapping.
func DefaultAccountMap() *AccountMapSpec {
	return &AccountMapSpec{
		Bank:     "Bank Account",
		Suspense: "Suspense Account",
		Categories: map[string]string{
			"Food":            "Food Expense",
			"Transport":       "Travel Expense",
			"Utilities":       "Utilities Expense",
			"Rent":            "Rent Expense",
			"Salary":          "Salary Income",
			"Cash":            "Cash In Hand",
			"Bank Charges":    "Bank Charges Expense",
			"Interest Income": "Interest Income",
		},
	}
}
