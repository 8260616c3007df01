package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obrasoft/docledger/constants"
)

func TestRecordLedgerValue(t *testing.T) {
	t.Run("payroll uses headcount", func(t *testing.T) {
		n := 14
		r := Record{Family: constants.FamilyPayroll, Headcount: &n}
		v := r.LedgerValue()
		require.NotNil(t, v)
		assert.Equal(t, 14.0, *v)
	})

	t.Run("invoice uses total", func(t *testing.T) {
		total := 10000.0
		r := Record{Family: constants.FamilyInvoice, Total: &total}
		v := r.LedgerValue()
		require.NotNil(t, v)
		assert.Equal(t, 10000.0, *v)
	})

	t.Run("failed extraction has no value", func(t *testing.T) {
		r := Record{Family: constants.FamilyPayroll, Method: constants.MethodNoMatch}
		assert.Nil(t, r.LedgerValue())
	})
}
