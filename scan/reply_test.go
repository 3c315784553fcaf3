package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMaps_RESP2(t *testing.T) {
	raw := []interface{}{
		int64(42), // total matches, only two returned
		"order:1", []interface{}{"id", "1", "total", []byte("9.5")},
		"order:2", []interface{}{"id", "2", "total", "3"},
	}
	rows, err := DecodeMaps(raw)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{
		{"id": "1", "total": "9.5"},
		{"id": "2", "total": "3"},
	}, rows)

	rows, err = DecodeMaps([]interface{}{int64(0)})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDecodeMaps_RESP3(t *testing.T) {
	raw := map[interface{}]interface{}{
		"total_results": int64(1),
		"results": []interface{}{
			map[interface{}]interface{}{
				"id":               "order:1",
				"extra_attributes": map[interface{}]interface{}{"status": "paid", "qty": int64(3)},
			},
		},
	}
	rows, err := DecodeMaps(raw)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"status": "paid", "qty": "3"}}, rows)
}

func TestDecodeMaps_Errors(t *testing.T) {
	_, err := DecodeMaps("nope")
	assert.Error(t, err)

	_, err = DecodeMaps([]interface{}{"x"})
	assert.Error(t, err)

	_, err = DecodeMaps(map[string]interface{}{"total_results": int64(0)})
	assert.Error(t, err)
}

func TestPairs(t *testing.T) {
	m, err := Pairs([]interface{}{"name", "ann", "tier", int64(2)})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "ann", "tier": "2"}, m)

	m, err = Pairs(map[interface{}]interface{}{"name": "bob"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "bob"}, m)

	m, err = Pairs(nil)
	require.NoError(t, err)
	assert.Empty(t, m)

	_, err = Pairs([]interface{}{"dangling"})
	assert.Error(t, err)
}

func TestScanPage(t *testing.T) {
	cursor, keys, err := ScanPage([]interface{}{"17", []interface{}{"order:1", "order:2"}})
	require.NoError(t, err)
	assert.Equal(t, uint64(17), cursor)
	assert.Equal(t, []string{"order:1", "order:2"}, keys)

	_, _, err = ScanPage([]interface{}{"x", []interface{}{}})
	assert.Error(t, err)

	_, _, err = ScanPage("nope")
	assert.Error(t, err)
}
