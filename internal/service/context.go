package service

import (
	"strings"

	"github.com/katakuxiko/luminarag/internal/model"
)

// AssembleContext joins retrieved passages, in retrieval order, with a blank
// line between them. Blank passages are skipped; no hits give "".
func AssembleContext(hits []model.Hit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		if strings.TrimSpace(h.Text) == "" {
			continue
		}
		parts = append(parts, h.Text)
	}
	return strings.Join(parts, "\n\n")
}
