package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/persona-chat/internal/config"
	"github.com/zhouzirui/persona-chat/internal/model/persona"
	"github.com/zhouzirui/persona-chat/internal/service/ai"
	"github.com/zhouzirui/persona-chat/internal/service/chat"
	"github.com/zhouzirui/persona-chat/internal/service/conversation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	p, err := persona.Load(cfg.Persona.File)
	if err != nil {
		log.Fatalf("failed to load persona: %v", err)
	}

	chatService := chat.NewService(chat.NewMemoryStore(), p.SystemPrompt())
	defer chatService.Close()

	client, err := ai.NewClient(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize completion client: %v", err)
	}
	convoService := conversation.NewService(chatService, client)

	session, err := chatService.CreateSession(ctx)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Println(boldGreen(p.Title()))
	fmt.Println(p.Placeholder() + " Type 'exit' or press Ctrl+C to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		input := scanner.Text()

		if strings.ToLower(strings.TrimSpace(input)) == "exit" {
			break
		}

		turn, err := convoService.Submit(ctx, session.ID, input, nil)
		if err != nil {
			if errors.Is(err, conversation.ErrEmptyInput) {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			fmt.Fprintln(os.Stderr, red("Error: "+err.Error()))
			continue
		}

		if turn.Notice != "" {
			fmt.Fprintln(os.Stderr, red(turn.Notice))
		}
		fmt.Printf("%s %s\n\n", boldCyan(p.Name+":"), turn.Reply.Content)
	}
}
