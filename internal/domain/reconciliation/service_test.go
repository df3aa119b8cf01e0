// internal/domain/reconciliation/service_test.go
package reconciliation

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/wms-backend/internal/domain/ledger"
)

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		cartons int
		want    Severity
	}{
		{-1, SeverityLow},
		{-10, SeverityLow},
		{-11, SeverityMedium},
		{-50, SeverityMedium},
		{-51, SeverityHigh},
		{-100, SeverityHigh},
		{-101, SeverityCritical},
		{-5000, SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d cartons", tt.cartons), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySeverity(tt.cartons))
		})
	}
}

func TestClassifySeverity_UsesMagnitude(t *testing.T) {
	// The classifier buckets by magnitude either way; positive balances are
	// simply never fed to it by the scan.
	assert.Equal(t, ClassifySeverity(-75), ClassifySeverity(75))
}

func historyOf(n int) []ledger.StockTransaction {
	txs := make([]ledger.StockTransaction, 0, n)
	for i := 0; i < n; i++ {
		txs = append(txs, ledger.StockTransaction{
			TransactionID:   fmt.Sprintf("LHR-RCV-20240101-%04d", i+1),
			TransactionType: ledger.TransactionTypeReceive,
			CartonsIn:       1,
			TransactionDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
		})
	}
	return txs
}

func TestSampleTransactions_KeepsTrailingEntries(t *testing.T) {
	// GIVEN: a 25-entry replay-ordered history and a sample size of 10
	// THEN: the sample is the 10 most recent entries, still in order
	txs := historyOf(25)

	samples := sampleTransactions(txs, 10)

	require.Len(t, samples, 10)
	assert.Equal(t, "LHR-RCV-20240101-0016", samples[0].TransactionID)
	assert.Equal(t, "LHR-RCV-20240101-0025", samples[9].TransactionID)
}

func TestSampleTransactions_ShortHistory(t *testing.T) {
	txs := historyOf(3)

	samples := sampleTransactions(txs, 10)

	require.Len(t, samples, 3)
	assert.Equal(t, "LHR-RCV-20240101-0001", samples[0].TransactionID)
}

func TestSampleTransactions_DefaultsSampleSize(t *testing.T) {
	txs := historyOf(15)

	samples := sampleTransactions(txs, 0)

	assert.Len(t, samples, 10)
}

func TestSampleTransactions_EmptyHistory(t *testing.T) {
	samples := sampleTransactions(nil, 10)

	assert.Empty(t, samples)
}

func TestBuildSummary(t *testing.T) {
	discrepancies := []Discrepancy{
		{Severity: SeverityLow},
		{Severity: SeverityLow},
		{Severity: SeverityCritical},
	}

	raw := buildSummary(120, discrepancies)

	var summary struct {
		KeysScanned             int              `json:"keys_scanned"`
		DiscrepanciesBySeverity map[Severity]int `json:"discrepancies_by_severity"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &summary))

	assert.Equal(t, 120, summary.KeysScanned)
	assert.Equal(t, 2, summary.DiscrepanciesBySeverity[SeverityLow])
	assert.Equal(t, 1, summary.DiscrepanciesBySeverity[SeverityCritical])
	assert.Zero(t, summary.DiscrepanciesBySeverity[SeverityHigh])
}

func TestBuildSummary_NoDiscrepancies(t *testing.T) {
	raw := buildSummary(40, nil)

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &summary))
	assert.Equal(t, float64(40), summary["keys_scanned"])
}
