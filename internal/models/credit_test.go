package models

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// The serialized field set is a fixed allow-list: the projection and the JSON
// encoding must expose exactly the persisted columns, so old and new service
// versions stay compatible during rolling deploys.
func TestProjectionMatchesColumnAllowList(t *testing.T) {
	c := &Credit{
		ID:              1,
		Amount:          decimal.RequireFromString("10.00"),
		RemainingAmount: decimal.RequireFromString("10.00"),
		CreatedOn:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	projection := c.Projection()
	require.Len(t, projection, len(CreditColumns))

	keys := make([]string, 0, len(projection))
	for k := range projection {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, sortedCopy(CreditColumns), keys)
}

func TestJSONFieldSetMatchesColumnAllowList(t *testing.T) {
	c := &Credit{
		ID:              1,
		Amount:          decimal.RequireFromString("10.00"),
		RemainingAmount: decimal.RequireFromString("10.00"),
		CreatedOn:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Len(t, fields, len(CreditColumns))

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, sortedCopy(CreditColumns), keys)
}
