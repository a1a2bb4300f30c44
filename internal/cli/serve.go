package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/taskping/taskping/internal/api"
	"github.com/taskping/taskping/internal/config"
	"github.com/taskping/taskping/internal/dates"
	"github.com/taskping/taskping/internal/handshake"
	"github.com/taskping/taskping/internal/notify"
	"github.com/taskping/taskping/internal/platform"
	"github.com/taskping/taskping/internal/repository"
	"github.com/taskping/taskping/internal/scheduler"
	"github.com/taskping/taskping/internal/service"
	"github.com/taskping/taskping/internal/summary"
	"github.com/taskping/taskping/internal/users"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the taskping server",
	Long: `Start the HTTP API, the reminder scheduler, and the offer broker.

Examples:
  taskping serve
  taskping serve --config /etc/taskping/config.yaml
  LISTEN_ADDR=0.0.0.0:9000 taskping serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := log.Default()

	refZone, err := dates.NormalizeZone(cfg.ReferenceTZ)
	if err != nil {
		return fmt.Errorf("reference_tz %q: %w", cfg.ReferenceTZ, err)
	}
	refLoc, err := time.LoadLocation(refZone)
	if err != nil {
		return fmt.Errorf("loading reference timezone %q: %w", refZone, err)
	}
	defaultClock, err := dates.ParseClock(cfg.DefaultReminderTime)
	if err != nil {
		return fmt.Errorf("default_reminder_time %q: %w", cfg.DefaultReminderTime, err)
	}

	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	taskRepo := repository.NewTaskRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	var directory users.Directory
	if cfg.DirectoryURL != "" {
		directory = platform.NewUserDirectory(cfg.DirectoryURL, cfg.DirectoryToken)
	}
	resolver := users.NewResolver(directory, cfg.NameCacheSize)

	var sink notify.Sink
	if cfg.GatewayURL != "" {
		sink = notify.NewGatewaySink(cfg.GatewayURL, cfg.GatewayToken)
	} else {
		logger.Printf("no gateway configured, deliveries go to stdout")
		sink = notify.NewConsoleSink(os.Stdout)
	}

	composer := summary.NewComposer(taskRepo, resolver, cfg.UpcomingLimit)
	taskService := service.NewTaskService(taskRepo, settingsRepo, refLoc, cfg.UpcomingLimit, logger)
	settingsService := service.NewSettingsService(settingsRepo)

	sched := scheduler.New(
		scheduler.Deps{
			Settings: settingsRepo,
			Tasks:    taskRepo,
			Composer: composer,
			Sink:     sink,
		},
		scheduler.Config{
			TickInterval: cfg.TickInterval(),
			DefaultClock: defaultClock,
		},
		logger,
	)

	offers := handshake.NewManager(taskService, sink, resolver, cfg.OfferTimeout(), logger)

	// Root context cancelled on SIGINT/SIGTERM
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(rootCtx)
	defer cancel()

	// POST /shutdown reaches the same cancel as the signals.
	router := api.SetupRouter(rootCmd.Version, taskService, settingsService, composer, offers, cancel, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	printBanner(cfg.ListenAddr)

	sched.Greet(ctx)

	select {
	case <-ctx.Done():
		logger.Printf("shutdown requested")
	case err := <-errCh:
		cancel()
		wg.Wait()
		return fmt.Errorf("server on %s (is another instance already running?): %w", cfg.ListenAddr, err)
	}

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Printf("graceful shutdown: %v", err)
	}

	cancel()
	wg.Wait()
	return nil
}

func printBanner(addr string) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return
	}
	fmt.Println("✅ Database ready!")
	fmt.Printf("🚀 Server running at http://%s\n", addr)
	fmt.Println("📝 Key endpoints:")
	fmt.Println("   POST /tasks - add a task")
	fmt.Println("   GET /summary/{user} - compose a reminder")
	fmt.Println("   POST /offers - offer a task to another user")
}
