package api

import (
	"log"
	"net/http"

	"github.com/taskping/taskping/internal/api/handlers"
	"github.com/taskping/taskping/internal/handshake"
	"github.com/taskping/taskping/internal/service"
	"github.com/taskping/taskping/internal/summary"
)

// SetupRouter wires the HTTP surface: task and settings operations for
// the chat-platform adapter, the offer endpoints driving the
// assignment handshake, and the admin endpoints. The shutdown callback
// stops the process; binding the listen address doubles as the
// single-instance lock.
func SetupRouter(
	version string,
	taskService *service.TaskService,
	settingsService *service.SettingsService,
	composer *summary.Composer,
	offers *handshake.Manager,
	shutdown func(),
	logger *log.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()

	taskHandler := handlers.NewTaskHandler(taskService, settingsService, composer)
	offerHandler := handlers.NewOfferHandler(offers)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	adminHandler := handlers.NewAdminHandler(version, offers, shutdown, logger)

	mux.HandleFunc("POST /tasks", taskHandler.AddTask)
	mux.HandleFunc("GET /tasks/{user}", taskHandler.ListUpcoming)
	mux.HandleFunc("GET /tasks/{user}/all", taskHandler.ListAll)
	mux.HandleFunc("GET /tasks/{user}/focus", taskHandler.Focus)
	mux.HandleFunc("POST /tasks/{user}/complete", taskHandler.CompleteMany)
	mux.HandleFunc("DELETE /tasks/{user}/{id}", taskHandler.CompleteOne)
	mux.HandleFunc("GET /summary/{user}", taskHandler.Summary)

	mux.HandleFunc("GET /settings/{user}/{key}", settingsHandler.GetSetting)
	mux.HandleFunc("PUT /settings", settingsHandler.PutSetting)

	mux.HandleFunc("POST /offers", offerHandler.OpenOffer)
	mux.HandleFunc("POST /offers/{id}/response", offerHandler.RespondOffer)

	mux.HandleFunc("GET /healthz", adminHandler.Health)
	mux.HandleFunc("GET /status", adminHandler.Status)
	mux.HandleFunc("POST /shutdown", adminHandler.Shutdown)

	return mux
}
