package server

import (
	"context"
	"time"

	"github.com/fitduel-vn/fitduel/internal/domains/entities"
)

type DuelView struct {
	Duel       entities.Duel              `json:"duel"`
	HealthData []entities.HealthDataPoint `json:"healthData"`
}

// GetDuelView returns the duel plus its recorded health data. Reads are
// where overdue staking windows get evaluated lazily, so correctness
// does not depend on the process having stayed alive for the full
// window.
func (c *Coordinator) GetDuelView(ctx context.Context, duelId string) (DuelView, error) {
	duel, err := c.getDuel(ctx, duelId)
	if err != nil {
		return DuelView{}, err
	}
	if duel.Status == entities.DuelWaitingForStakes && duel.StakingDeadline != nil {
		if time.Now().After(*duel.StakingDeadline) {
			c.HandleStakingTimeout(ctx, duelId)
			duel, err = c.getDuel(ctx, duelId)
			if err != nil {
				return DuelView{}, err
			}
		} else if _, armed := c.stakingTimers.Load(duelId); !armed {
			// A marker without a local timer means the process restarted
			// mid-window; re-arm for the remainder.
			if ok, err := c.cache.HasStakingMarker(ctx, duelId); err == nil && ok {
				c.armStakingTimer(duelId, time.Until(*duel.StakingDeadline))
			}
		}
	}

	points, _, err := c.store.FetchHealthData(ctx, duelId, nil, 0)
	if err != nil {
		return DuelView{}, newDependencyError("Record store unavailable", err)
	}
	return DuelView{
		Duel:       duel,
		HealthData: points,
	}, nil
}
