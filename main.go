package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"duochat/chat"
	"duochat/config"
	"duochat/database"
	"duochat/gateway"
	"duochat/handlers"
	"duochat/presence"
	"duochat/routes"
	"duochat/status"
	"duochat/store"
)

func main() {
	log.Println("🚀 Starting duochat server...")

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ Invalid configuration: ", err)
	}
	gin.SetMode(cfg.GinMode)

	var db *database.Database
	for i := 1; i <= 3; i++ {
		db, err = database.Connect(cfg.DatabaseURL)
		if err == nil {
			break
		}
		log.Printf("❌ Database connection attempt %d failed: %v", i, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatal("❌ Failed to connect to database: ", err)
	}
	if err := db.Migrate(); err != nil {
		log.Fatal("❌ Failed to migrate database: ", err)
	}

	for _, dir := range []string{"chat", "profiles"} {
		if err := os.MkdirAll(filepath.Join(cfg.UploadDir, dir), 0o755); err != nil {
			log.Fatal("❌ Failed to create upload directory: ", err)
		}
	}

	st := store.New(db.DB)
	tracker := presence.NewTracker()

	hub := gateway.NewHub(cfg.JWTSecret, cfg.AwayAfter, tracker, st.Statuses)
	svc := chat.NewService(st, hub, chat.PushOptions{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		Subscriber:      cfg.PushSubscriber,
	})
	hub.SetChatService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)
	go status.NewSweeper(st.Statuses, cfg.StatusSweepInterval, cfg.StatusRetention).Run(ctx)

	api := handlers.New(cfg, st, svc)
	router := routes.Setup(cfg, api, hub)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Server error: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("❌ Forced shutdown: ", err)
	}

	log.Println("👋 Server stopped gracefully")
}
