package flow

import (
	"context"
	"fmt"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

// nameKeys are tried in order when looking for a name-ish value in parsed data.
var nameKeys = []string{"title", "name", "query"}

// resolveTarget looks up a stored entity by the name found in data. When that fails
// and allowFallback is set, the session's last entity of the same kind is used.
func (e *Engine) resolveTarget(ctx context.Context, h Handler, data models.Data, s *models.Session, uc models.UserContext, allowFallback bool) (*models.TargetMatch, error) {
	var name string
	for _, key := range nameKeys {
		if v := data.String(key); v != "" {
			name = v
			break
		}
	}

	if name != "" && h.Supports(VerbFindTarget) {
		target, err := h.FindTarget(ctx, name, uc)
		if err != nil {
			return nil, fmt.Errorf("find %s %q: %w", h.Entity(), name, err)
		}
		if target != nil {
			return target, nil
		}
	}

	if allowFallback && s.LastEntity != nil && s.LastEntity.Type == h.Entity() {
		last := s.LastEntity
		label := last.Name
		if label == "" {
			label = h.Label()
		}
		return &models.TargetMatch{ID: last.ID, Name: label, Item: last.Data.Clone()}, nil
	}
	return nil, nil
}
