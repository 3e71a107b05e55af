package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, 100, cfg.OCR.MinTextChars)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, 60*time.Second, cfg.OCR.Timeout)
	assert.Equal(t, 0.5, cfg.Classify.MinConfidence)
	assert.Equal(t, "Bank Account", cfg.Accounts.Bank)
	assert.Equal(t, "Suspense Account", cfg.Accounts.Suspense)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CURRENCY", "USD")
	t.Setenv("OCR_DPI", "150")
	t.Setenv("OCR_TIMEOUT", "30s")
	t.Setenv("CLASSIFY_MIN_CONFIDENCE", "0.7")

	cfg := Load()

	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 150, cfg.OCR.DPI)
	assert.Equal(t, 30*time.Second, cfg.OCR.Timeout)
	assert.Equal(t, 0.7, cfg.Classify.MinConfidence)
}

func TestLoadRules(t *testing.T) {
	path := writeTempFile(t, "rules.yaml", `
categories:
  - name: Food
    phrases: ["GROCERY MART"]
    keywords: ["GROCERY", "RESTAURANT"]
  - name: Transport
    keywords: ["UBER", "FUEL"]
`)

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "Food", rules[0].Name)
	assert.Equal(t, []string{"GROCERY MART"}, rules[0].Phrases)
	assert.Equal(t, []string{"UBER", "FUEL"}, rules[1].Keywords)
}

func TestLoadAccountMap(t *testing.T) {
	path := writeTempFile(t, "accounts.yaml", `
accounts:
  bank: HDFC Savings
  suspense: Suspense Account
  categories:
    Food: Food Expense
    Salary: Salary Income
`)

	m, err := LoadAccountMap(path)
	require.NoError(t, err)
	assert.Equal(t, "HDFC Savings", m.Bank)
	assert.Equal(t, "Food Expense", m.Categories["Food"])
}

func TestLoadTrainingSamples(t *testing.T) {
	path := writeTempFile(t, "training.yaml", `
training:
  - description: "UPI-SWIGGY ORDER"
    direction: debit
    category: Food
  - description: "NEFT SALARY CREDIT"
    direction: credit
    category: Salary
`)

	samples, err := LoadTrainingSamples(path)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "Salary", samples[1].Category)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDefaultTables(t *testing.T) {
	rules := DefaultRules()
	require.NotEmpty(t, rules)
	assert.Equal(t, "Food", rules[0].Name)

	m := DefaultAccountMap()
	assert.NotEmpty(t, m.Bank)
	assert.NotEmpty(t, m.Suspense)
	for category := range m.Categories {
		found := false
		for _, r := range rules {
			if r.Name == category {
				found = true
				break
			}
		}
		assert.True(t, found, "mapped category %q has no rule", category)
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
