package dashauth

import (
	"context"
	"strconv"

	"github.com/MrEthical07/dashauth/internal/audit"
)

func (e *Engine) emitAudit(ctx context.Context, event string, success bool, userID int64, sessionID string, err error, meta func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	ev := audit.Event{
		Timestamp: e.now().UTC(),
		EventType: event,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if meta != nil {
		ev.Metadata = meta()
	}
	e.audit.Emit(ctx, ev)
}

func actorMeta(actorID int64) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"actor_id": itoa(actorID)}
	}
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
