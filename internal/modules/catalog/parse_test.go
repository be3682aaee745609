package catalog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"2500", 2500, false},
		{"$2.500", 2500, false},
		{" $ 1.500.000 ", 1500000, false},
		{"1.500,50", 1500.5, false},
		{"0", 0, false},
		{"", 0, true},
		{"$", 0, true},
		{"gratis", 0, true},
		{"-100", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePrice(tc.in)
			if tc.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "price", verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"12", 12, false},
		{" 3 ", 3, false},
		{"010", 10, false},
		{"0", 0, false},
		{"", 0, true},
		{"2.5", 0, true},
		{"diez", 0, true},
		{"-1", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseQuantity(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormValuesFromJSONNumbers(t *testing.T) {
	price, err := priceOf(1500.0)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, price)

	qty, err := quantityOf(4.0)
	require.NoError(t, err)
	assert.Equal(t, 4, qty)

	_, err = quantityOf(4.5)
	assert.Error(t, err)

	_, err = priceOf(nil)
	assert.Error(t, err)
}

func TestStoredQuantity(t *testing.T) {
	assert.Equal(t, 7, storedQuantity("7"))
	assert.Equal(t, 10, storedQuantity("010"))
	assert.Equal(t, 4, storedQuantity(4.0))
	assert.Equal(t, 3, storedQuantity(int64(3)))
	assert.Zero(t, storedQuantity(-2))
	assert.Zero(t, storedQuantity("muchos"))
	assert.Zero(t, storedQuantity(nil))
	assert.Zero(t, storedQuantity(math.NaN()))
	assert.Zero(t, storedQuantity(math.Inf(1)))
	assert.Zero(t, storedQuantity(1e30))
}
