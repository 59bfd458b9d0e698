package badges

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	svg := string(Render("skill", "Reviewed 7.4", "#007ec6"))

	assert.Contains(t, svg, `aria-label="skill: Reviewed 7.4"`)
	assert.Contains(t, svg, `fill="#007ec6"`)
	// 5*7+10 + 12*7+10
	assert.Contains(t, svg, `width="139"`)
	assert.Contains(t, svg, `<rect x="45" width="94"`)

	var doc struct{ XMLName xml.Name }
	require.NoError(t, xml.Unmarshal([]byte(svg), &doc))
	assert.Equal(t, "svg", doc.XMLName.Local)
}

func TestRenderEscapes(t *testing.T) {
	svg := string(Render("a<b", `"x"&y`, "#fff"))
	assert.Contains(t, svg, "a&lt;b")
	assert.NotContains(t, svg, "a<b")

	var doc struct{ XMLName xml.Name }
	assert.NoError(t, xml.Unmarshal([]byte(svg), &doc))
}

func TestForReport(t *testing.T) {
	for badge, color := range Colors {
		svg := string(ForReport(&scoring.Report{SkillName: "x", OverallScore: 7.44, Badge: badge}))
		assert.Contains(t, svg, color, badge)
		assert.Contains(t, svg, string(badge)+" 7.4", badge)
	}

	svg := string(ForReport(&scoring.Report{Badge: "Unknown"}))
	assert.Contains(t, svg, Colors[scoring.BadgeFlagged])
}

func TestGenerate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "badges")
	reports := []*scoring.Report{
		{SkillName: "pdf-tools", OverallScore: 8.5, Badge: scoring.BadgeVerified},
		{SkillName: "csv-tools", OverallScore: 3.0, Badge: scoring.BadgeFlagged},
	}

	paths, err := Generate(context.Background(), reports, out)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "pdf-tools.svg"), filepath.Join(out, "csv-tools.svg")}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Verified 8.5")
}
