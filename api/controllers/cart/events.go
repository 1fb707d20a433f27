package cart

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/servicecart/api/responses"
	cartsvc "github.com/angelmondragon/servicecart/internal/cart"
	pkgerrors "github.com/angelmondragon/servicecart/pkg/errors"
	"github.com/angelmondragon/servicecart/pkg/logger"
)

// DefaultHeartbeat keeps idle event streams open through proxies.
const DefaultHeartbeat = 25 * time.Second

// Events streams the visitor's cart as server-sent events. The current snapshot is sent on
// connect and again after every change; bursts of changes collapse into one event.
func Events(carts Carts, heartbeat time.Duration, logg *logger.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}
		store, ok := visitorStore(w, r, carts, logg)
		if !ok {
			return
		}

		changed := make(chan struct{}, 1)
		unsubscribe := store.Subscribe(func(cartsvc.Event) {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		ctx := r.Context()
		var seq uint64
		send := func() bool {
			seq++
			if err := writeEvent(w, seq, store.Snapshot()); err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "cart.events.write_failed")
				}
				return false
			}
			flusher.Flush()
			return true
		}

		if !send() {
			return
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				if !send() {
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, id uint64, snapshot cartsvc.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, cartsvc.EventCartUpdated, payload)
	return err
}
