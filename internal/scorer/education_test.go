package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/risk-analyzer/internal/heuristics"
	"github.com/sells-group/risk-analyzer/internal/model"
)

func TestEducation_SafeOnlyTip(t *testing.T) {
	got := Education(nil, model.LabelSafe)
	require.Len(t, got, 1)
	assert.Equal(t, "Good practice: Always verify before trusting", got[0].Title)
}

func TestEducation_WarningTip(t *testing.T) {
	for _, label := range []model.Label{model.LabelSuspicious, model.LabelDangerous} {
		got := Education(nil, label)
		require.Len(t, got, 1)
		assert.Equal(t, "What to do with suspicious content", got[0].Title)
	}
}

func TestEducation_DedupesAndSkipsUnknown(t *testing.T) {
	inds := []model.Indicator{
		ind(heuristics.IPAddress, 0.85),
		ind(heuristics.MissingHTTPS, 0.6),
		ind(heuristics.SuspiciousPath, 0.6), // no entry
		ind(heuristics.MissingHTTPS, 0.6),
		ind("Unknown Rule", 0.2),
	}

	got := Education(inds, model.LabelDangerous)
	require.Len(t, got, 3)
	assert.Equal(t, "Why IP addresses in URLs are suspicious", got[0].Title)
	assert.Equal(t, "Why HTTPS matters", got[1].Title)
	assert.Equal(t, "What to do with suspicious content", got[2].Title)
}

func TestEducation_AllEntries(t *testing.T) {
	assert.Len(t, education, 10)
	for name, item := range education {
		assert.NotEmpty(t, item.Title, name)
		assert.NotEmpty(t, item.Content, name)
	}
}
