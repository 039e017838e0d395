package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fieldreportbot/pkg/bot"
	"fieldreportbot/pkg/bot/telegramadapter"
	"fieldreportbot/pkg/config"
	"fieldreportbot/pkg/fsm"
	"fieldreportbot/pkg/guard"
	"fieldreportbot/pkg/ops"
	"fieldreportbot/pkg/storage"
)

func main() {

	cfgPath := "config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		cfgPath = p
	}
	if err := config.LoadConfig(cfgPath); err != nil {
		log.Panicf("Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	cfg := config.GetConfig()

	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		log.Panic("TELEGRAM_BOT_TOKEN environment variable not set")
	}

	botClient, err := bot.NewClient(botToken)
	if err != nil {
		log.Panicf("Failed to initialize bot client: %v", err)
	}
	log.Printf("Authorized on account %s", botClient.Self.UserName)

	botPort, err := telegramadapter.New(botClient, log.Default())
	if err != nil {
		log.Panicf("Failed to create telegram adapter: %v", err)
	}

	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		log.Panicf("Failed to open database: %v", err)
	}

	var limiter fsm.RateLimiter = guard.AllowAllLimiter{}
	if cfg.RateLimiter.URL != "" {
		limiter = guard.NewRateLimiterClient(cfg.RateLimiter.URL, cfg.RateLimiterTimeout())
	} else {
		log.Println("Warning: rate_limiter.url not set, registration throttling disabled")
	}

	machine := fsm.NewMachine(fsm.Deps{
		Bot:      botPort,
		Accounts: storage.NewAccountRepo(db),
		Reports:  storage.NewReportRepo(db),
		Settings: storage.NewSettingsRepo(db, cfg.RegistrationTTL(), cfg.ReportTTL()),
		Limiter:  limiter,
		Guard:    guard.New(guard.WithLimits(cfg.Limits.MaxCodeAttempts, cfg.Lockout())),
		Limits: fsm.Limits{
			MaxCount:   cfg.Limits.MaxCount,
			MaxAmount:  cfg.MaxAmountDecimal(),
			CodeLength: cfg.Limits.CodeLength,
		},
	})

	go ops.Serve(cfg.Ops.Listen, machine)

	updates := botClient.GetUpdatesChan(60)
	log.Println("Starting update processing...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Println("Shutdown signal received...")
		cancel()
	}()

	for {
		select {
		case update := <-updates:
			if update.UpdateID == 0 {
				continue
			}
			go machine.HandleUpdate(ctx, update)
		case <-ctx.Done():
			log.Println("Stopping update processing loop...")
			return
		}
	}
}
