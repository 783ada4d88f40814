package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/persona-chat/internal/config"
	"github.com/zhouzirui/persona-chat/internal/handler"
	"github.com/zhouzirui/persona-chat/internal/model/persona"
	"github.com/zhouzirui/persona-chat/internal/service/ai"
	"github.com/zhouzirui/persona-chat/internal/service/chat"
	"github.com/zhouzirui/persona-chat/internal/service/conversation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	p, err := persona.Load(cfg.Persona.File)
	if err != nil {
		log.Fatalf("failed to load persona: %v", err)
	}
	log.Printf("persona loaded: %s", p.Name)

	store, err := chat.NewStore(ctx, chat.StoreType(cfg.Session.Driver), chat.StoreOptions{
		RedisURL:  cfg.Session.RedisURL,
		KeyPrefix: cfg.Session.KeyPrefix,
		TTL:       cfg.Session.TTL,
	})
	if err != nil {
		log.Fatalf("failed to initialize session store: %v", err)
	}
	log.Printf("session store initialized: %s", cfg.Session.Driver)

	// 系统提示词在进程启动时构建一次，之后复制到每个新会话
	chatService := chat.NewService(store, p.SystemPrompt())
	defer func() {
		if err := chatService.Close(); err != nil {
			log.Printf("warning: failed to close session store: %v", err)
		}
	}()

	client, err := ai.NewClient(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize completion client: %v", err)
	}
	if !cfg.AI.Enabled() {
		log.Printf("warning: %s credentials not configured; replies will fall back until they are set", cfg.AI.Provider)
	}

	convoService := conversation.NewService(chatService, client)

	router := handler.NewRouter(p, chatService, convoService)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("persona chat listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
