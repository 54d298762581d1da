package marketshift

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog/log"

	"github.com/carworth/carworth/internal/domain"
)

// Alert lifecycle states and events.
const (
	stateActive  = "active"
	stateExpired = "expired"

	eventExpire = "expire"
)

// lifecycle binds an alert to its state machine. Alerts only ever move
// forward: once expired they stay inactive regardless of further matching
// deltas.
type lifecycle struct {
	alert   *domain.MarketShiftAlert
	machine *fsm.FSM
}

func newLifecycle(alert *domain.MarketShiftAlert) *lifecycle {
	initial := stateExpired
	if alert.IsActive {
		initial = stateActive
	}

	lc := &lifecycle{alert: alert}
	lc.machine = fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: eventExpire, Src: []string{stateActive}, Dst: stateExpired},
		},
		fsm.Callbacks{
			"enter_" + stateExpired: func(_ context.Context, _ *fsm.Event) {
				alert.IsActive = false
				log.Info().Str("alert_id", alert.ID).Msg("market shift alert expired")
			},
		},
	)
	return lc
}

// Expire fires the expire transition. It fails when the alert is already
// expired.
func (lc *lifecycle) Expire(ctx context.Context) error {
	return lc.machine.Event(ctx, eventExpire)
}
