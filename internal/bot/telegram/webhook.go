package telegram

import (
	"net/http"

	"go.uber.org/zap"
)

// WebhookHandler accepts updates pushed by Telegram instead of polling.
func (a *Adapter) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		update, err := a.api.HandleUpdate(r)
		if err != nil {
			a.logger.Warn("Failed to decode webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		a.ProcessUpdate(r.Context(), *update)
		w.WriteHeader(http.StatusOK)
	})
}
