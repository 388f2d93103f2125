package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNewRule_Normalizes(t *testing.T) {
	r, err := NewRule(" Lab ", " sqli-101 ", ptr(" PRO "), ptr(int64(499)), "inr", true)
	require.NoError(t, err)

	assert.Equal(t, "lab", r.ContentType())
	assert.Equal(t, "sqli-101", r.ContentID())
	assert.Equal(t, "pro", r.PlanName())
	assert.Equal(t, int64(499), r.Price())
	assert.Equal(t, "INR", r.Currency())
}

func TestNewRule_Validation(t *testing.T) {
	_, err := NewRule("", "x", nil, nil, "", true)
	assert.Error(t, err)

	_, err = NewRule("lab", "", nil, nil, "", true)
	assert.Error(t, err)

	_, err = NewRule("lab", "x", nil, ptr(int64(-5)), "INR", true)
	assert.Error(t, err)

	_, err = NewRule("lab", "x", nil, ptr(int64(100)), "", true)
	assert.Error(t, err)
}

func TestRule_PriceTreatsZeroAsUnset(t *testing.T) {
	r, err := NewRule("lab", "x", ptr(""), ptr(int64(0)), "", true)
	require.NoError(t, err)

	assert.Equal(t, int64(0), r.Price())
	assert.Nil(t, r.RequiredPlan())
	assert.Equal(t, "", r.PlanName())
}

func TestPolicy_IsFreeByDefault(t *testing.T) {
	p := NewPolicy([]string{"Challenge", " "})

	assert.True(t, p.IsFreeByDefault("challenge"))
	assert.True(t, p.IsFreeByDefault("CHALLENGE"))
	assert.False(t, p.IsFreeByDefault("lab"))
}
