package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"github.com/dedida26/library/internal/config"
	"github.com/dedida26/library/internal/db"
	"github.com/dedida26/library/internal/httpapi"
	"github.com/dedida26/library/internal/logging"
	"github.com/dedida26/library/internal/service"
	"github.com/dedida26/library/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	logger.Info("=== LIBRARY STARTING ===", "driver", cfg.DBDriver, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. БД
	store, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Error("Ошибка БД", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	// 3. Сервисы
	library := service.NewLibrary(store, logger)
	auth := service.NewAuth(store, logger, cfg.JWTSecret, cfg.SessionTTL)
	todo := service.NewTodo(store)

	// 4. HTTP
	api := httpapi.New(httpapi.Options{
		Library:     library,
		Auth:        auth,
		Todo:        todo,
		DB:          store,
		Logger:      logger,
		BotToken:    cfg.TelegramToken,
		CORSOrigins: cfg.CORSOrigins,
	})

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		logger.Error("Ошибка HTTP", "addr", cfg.HTTPAddr, "err", err)
		store.Close()
		os.Exit(1)
	}
	ln = netutil.LimitListener(ln, cfg.MaxConns)

	srv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("HTTP запущен", "addr", ln.Addr().String(), "max_conns", cfg.MaxConns)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ошибка HTTP", "err", err)
			stop()
		}
	}()

	// 5. Бот (если задан токен)
	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, library, auth, logger)
		if err != nil {
			logger.Error("Ошибка при создании бота, продолжаем без него", "err", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				logger.Info("Бот запущен")
				bot.Start(ctx)
			}()
		}
	}

	<-ctx.Done()
	logger.Info("Остановка...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки HTTP", "err", err)
	}
	wg.Wait()
	logger.Info("Остановлено")
}
