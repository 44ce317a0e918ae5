package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/GenturixHub/genturix-push/internal/platform"
	"github.com/GenturixHub/genturix-push/internal/pushsync"
	"github.com/GenturixHub/genturix-push/internal/registry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	statePath := os.Getenv("AGENT_STATE_PATH")
	if statePath == "" {
		statePath = "agent.db"
	}

	registryURL := os.Getenv("REGISTRY_URL")
	if registryURL == "" {
		log.Fatal("REGISTRY_URL environment variable is required")
	}
	deviceToken := os.Getenv("DEVICE_TOKEN")
	if deviceToken == "" {
		log.Fatal("DEVICE_TOKEN environment variable is required")
	}

	// The push gateway is where this device's own endpoint lives. Leaving
	// it empty runs the agent in unsupported mode, which is still useful
	// for smoke-testing the registry connection.
	gatewayURL := os.Getenv("PUSH_GATEWAY_URL")

	kiosk, err := platform.Open(statePath, gatewayURL)
	if err != nil {
		log.Fatalf("Failed to open device state: %v", err)
	}
	defer kiosk.Close()

	client := registry.NewClient(registryURL, deviceToken)
	prompter := platform.PolicyFromEnv(os.Getenv("PUSH_PERMISSION"))

	engine := pushsync.New(pushsync.Config{
		Registry: client,
		Platform: kiosk,
		Prompter: prompter,
		Cache:    kiosk,
		OnChange: func(s pushsync.Snapshot) {
			if s.Err != nil {
				log.Printf("push state: phase=%s subscribed=%v err=%v", s.Phase, s.Subscribed, s.Err)
				return
			}
			log.Printf("push state: phase=%s subscribed=%v", s.Phase, s.Subscribed)
		},
		Logger: log.New(os.Stderr, "pushsync: ", log.LstdFlags),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.Start(ctx)

	statusAddr := os.Getenv("AGENT_STATUS_ADDR")
	if statusAddr == "" {
		statusAddr = "127.0.0.1:8090"
	}
	go serveStatus(statusAddr, engine.Status)

	if os.Getenv("PUSH_SUBSCRIBE_ON_START") == "true" {
		if err := engine.Subscribe(ctx); err != nil {
			log.Printf("Subscribe failed: %v", err)
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down")
	engine.Close()
	cancel()
}
