package booking

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/padel-scheduler/internal/browser"
)

// PlayerSelector seats the remaining players of a reservation. The booker
// occupies seat 1 by portal convention; seats 2..K are filled from the
// candidate list in order, skipping names the portal does not offer.
type PlayerSelector struct {
	// RequiredPlayers is the court's seat count K, booker included.
	RequiredPlayers int
	Log             *zap.Logger
}

func playerSeatSelector(seat int) string {
	return fmt.Sprintf(`select[name="players[%d]"]`, seat)
}

// Select fills seats 2..K and returns the full ordered assignment starting
// with the booker. Candidates in excluded (e.g. reported blocked by the
// portal on an earlier pass) are skipped; no candidate is tried twice. Trial
// order is the candidate list order, so runs are reproducible.
func (p *PlayerSelector) Select(ctx context.Context, sess browser.Session, booker string, candidates []string, excluded map[string]bool) ([]string, error) {
	k := p.RequiredPlayers
	if k < 2 {
		k = 4
	}
	log := p.logger()

	seated := []string{booker}
	used := map[string]bool{booker: true}

	for seat := 2; seat <= k; seat++ {
		sel := playerSeatSelector(seat)
		options, err := sess.OptionTexts(ctx, sel)
		if err != nil {
			return nil, WrapErr(KindNavigation, err, "reading options for seat %d", seat)
		}
		offered := make(map[string]bool, len(options))
		for _, o := range options {
			offered[o] = true
		}

		filled := false
		for _, cand := range candidates {
			if used[cand] || excluded[cand] || !offered[cand] {
				continue
			}
			if err := sess.SelectByText(ctx, sel, cand); err != nil {
				return nil, WrapErr(KindNavigation, err, "selecting %q for seat %d", cand, seat)
			}
			log.Info("seated player", zap.String("name", cand), zap.Int("seat", seat))
			seated = append(seated, cand)
			used[cand] = true
			filled = true
			break
		}
		if !filled {
			// Later seats draw from the same exhausted pool.
			remaining := make([]int, 0, k-seat+1)
			for s := seat; s <= k; s++ {
				remaining = append(remaining, s)
			}
			return nil, Errf(KindPlayerSelection, "no available candidate for seats %v", remaining)
		}
	}
	return seated, nil
}

func (p *PlayerSelector) logger() *zap.Logger {
	if p.Log != nil {
		return p.Log
	}
	return zap.NewNop()
}
