// internal/domain/ledger/txid_test.go
package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTransactionID(t *testing.T) {
	date := time.Date(2024, time.January, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		txType TransactionType
		seq    int
		want   string
	}{
		{"receive", TransactionTypeReceive, 3, "LHR-RCV-20240115-0003"},
		{"ship", TransactionTypeShip, 1, "LHR-SHP-20240115-0001"},
		{"adjust in", TransactionTypeAdjustIn, 42, "LHR-ADI-20240115-0042"},
		{"adjust out", TransactionTypeAdjustOut, 7, "LHR-ADO-20240115-0007"},
		{"transfer in", TransactionTypeTransferIn, 9999, "LHR-TRI-20240115-9999"},
		{"transfer out", TransactionTypeTransferOut, 12, "LHR-TRO-20240115-0012"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTransactionID("LHR", tt.txType, date, tt.seq))
		})
	}
}

func TestTransactionTypeDirection(t *testing.T) {
	inbound := []TransactionType{TransactionTypeReceive, TransactionTypeAdjustIn, TransactionTypeTransferIn}
	outbound := []TransactionType{TransactionTypeShip, TransactionTypeAdjustOut, TransactionTypeTransferOut}

	for _, typ := range inbound {
		assert.True(t, typ.IsInbound(), "%s should be inbound", typ)
		assert.False(t, typ.IsOutbound(), "%s should not be outbound", typ)
		assert.True(t, typ.IsValid())
	}
	for _, typ := range outbound {
		assert.True(t, typ.IsOutbound(), "%s should be outbound", typ)
		assert.False(t, typ.IsInbound(), "%s should not be inbound", typ)
		assert.True(t, typ.IsValid())
	}

	assert.False(t, TransactionType("DELETE").IsValid())
	assert.False(t, TransactionType("").IsValid())
	assert.Equal(t, "UNK", TransactionType("DELETE").Abbrev())
}

func TestDayBoundaries(t *testing.T) {
	at := time.Date(2024, time.July, 4, 15, 45, 30, 123, time.UTC)

	start := startOfDay(at)
	assert.Equal(t, time.Date(2024, time.July, 4, 0, 0, 0, 0, time.UTC), start)

	end := endOfDay(at)
	assert.Equal(t, 4, end.Day())
	assert.Equal(t, 23, end.Hour())
	assert.True(t, end.After(at))
	assert.True(t, end.Before(start.AddDate(0, 0, 1)))
}

func TestNetCartons(t *testing.T) {
	in := StockTransaction{TransactionType: TransactionTypeReceive, CartonsIn: 40}
	out := StockTransaction{TransactionType: TransactionTypeShip, CartonsOut: 15}

	assert.Equal(t, 40, in.NetCartons())
	assert.Equal(t, -15, out.NetCartons())
}
