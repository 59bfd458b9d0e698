// Package badges renders shields-style SVG badges for scored skills.
package badges

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// DefaultLabel is the left-hand text of every badge
const DefaultLabel = "skill"

// Colors per badge tier
var Colors = map[scoring.Badge]string{
	scoring.BadgeVerified:   "#4c1",
	scoring.BadgeReviewed:   "#007ec6",
	scoring.BadgeUnverified: "#dfb317",
	scoring.BadgeFlagged:    "#e05d44",
}

const (
	charWidth = 7
	padding   = 10
)

var svgTemplate = template.Must(template.New("badge").Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="20" role="img" aria-label="{{.Label}}: {{.Message}}">
<title>{{.Label}}: {{.Message}}</title>
<linearGradient id="s" x2="0" y2="100%"><stop offset="0" stop-color="#bbb" stop-opacity=".1"/><stop offset="1" stop-opacity=".1"/></linearGradient>
<clipPath id="r"><rect width="{{.Width}}" height="20" rx="3" fill="#fff"/></clipPath>
<g clip-path="url(#r)">
<rect width="{{.LabelWidth}}" height="20" fill="#555"/>
<rect x="{{.LabelWidth}}" width="{{.MessageWidth}}" height="20" fill="{{.Color}}"/>
<rect width="{{.Width}}" height="20" fill="url(#s)"/>
</g>
<g fill="#fff" text-anchor="middle" font-family="Verdana,Geneva,DejaVu Sans,sans-serif" font-size="11">
<text x="{{.LabelX}}" y="14">{{.Label}}</text>
<text x="{{.MessageX}}" y="14">{{.Message}}</text>
</g>
</svg>
`))

type badgeData struct {
	Label, Message, Color           string
	Width, LabelWidth, MessageWidth int
	LabelX, MessageX                float64
}

// Render returns an SVG badge. Label and message are XML escaped.
func Render(label, message, color string) []byte {
	lw := len(label)*charWidth + padding
	mw := len(message)*charWidth + padding
	data := badgeData{
		Label:        template.HTMLEscapeString(label),
		Message:      template.HTMLEscapeString(message),
		Color:        template.HTMLEscapeString(color),
		Width:        lw + mw,
		LabelWidth:   lw,
		MessageWidth: mw,
		LabelX:       float64(lw) / 2,
		MessageX:     float64(lw) + float64(mw)/2,
	}

	var buf bytes.Buffer
	if err := svgTemplate.Execute(&buf, data); err != nil {
		// the template is static and data is plain strings and numbers
		panic(err)
	}
	return buf.Bytes()
}

// ForReport renders the badge of a score report
func ForReport(r *scoring.Report) []byte {
	color, ok := Colors[r.Badge]
	if !ok {
		color = Colors[scoring.BadgeFlagged]
	}
	return Render(DefaultLabel, fmt.Sprintf("%s %.1f", r.Badge, r.OverallScore), color)
}

// Generate writes <skill_name>.svg into outDir for every report and returns
// the written paths in input order.
func Generate(ctx context.Context, reports []*scoring.Report, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create badge directory %s", outDir)
	}

	paths := make([]string, 0, len(reports))
	for _, r := range reports {
		path := filepath.Join(outDir, filepath.Base(r.SkillName)+".svg")
		if err := lockedfile.Write(path, bytes.NewReader(ForReport(r)), 0o644); err != nil {
			return paths, errors.Wrapf(err, "failed to write badge %s", path)
		}
		logger.G(ctx).WithField("path", path).WithField("badge", r.Badge).Debug("badge written")
		paths = append(paths, path)
	}
	return paths, nil
}
