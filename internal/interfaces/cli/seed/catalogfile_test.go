package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secforge/billing/internal/infrastructure/repository"
	"github.com/secforge/billing/internal/infrastructure/repository/testdb"
	"github.com/secforge/billing/internal/shared/logger"
)

const sampleCatalog = `
rules:
  - content_type: Course
    content_id: " intro-go "
    individual_price: 499
  - content_type: lab
    content_id: x
    required_plan: pro
    individual_price: 49900
    currency: usd
  - content_type: course
    content_id: retired
    required_plan: basic
    active: false
`

func TestParseCatalog(t *testing.T) {
	file, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, file.Rules, 3)

	rules, err := file.DomainRules("INR")
	require.NoError(t, err)

	assert.Equal(t, "course", rules[0].ContentType())
	assert.Equal(t, "intro-go", rules[0].ContentID())
	assert.Equal(t, "INR", rules[0].Currency())
	assert.True(t, rules[0].IsActive())

	assert.Equal(t, "pro", rules[1].PlanName())
	assert.Equal(t, "USD", rules[1].Currency())

	assert.False(t, rules[2].IsActive())
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not yaml", doc: "rules: [unterminated"},
		{name: "no rules", doc: "rules: []"},
		{name: "missing content id", doc: "rules:\n  - content_type: course\n"},
		{name: "negative price", doc: "rules:\n  - content_type: course\n    content_id: c1\n    individual_price: -5\n"},
		{name: "bad currency", doc: "rules:\n  - content_type: course\n    content_id: c1\n    currency: rupees\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	file, err := LoadCatalogFile(path)
	require.NoError(t, err)
	rules, err := file.DomainRules("INR")
	require.NoError(t, err)

	gdb := testdb.New(t)
	repo := repository.NewCatalogRepository(gdb, logger.NewNopLogger())
	ctx := context.Background()

	n, err := Apply(ctx, repo, rules)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Re-seeding replaces rather than duplicates.
	n, err = Apply(ctx, repo, rules)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := repo.GetRule(ctx, "lab", "x")
	require.NoError(t, err)
	assert.Equal(t, int64(49900), got.Price())

	_, err = LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
