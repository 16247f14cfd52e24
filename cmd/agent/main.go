package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"roomkey/internal/agentd"
	"roomkey/internal/bridge"
	"roomkey/internal/config"
	"roomkey/internal/logger"
	"roomkey/internal/notify"
	"roomkey/internal/usecase/pairing"
	"roomkey/pkg/mqtt"
)

func main() {
	pairToken := flag.String("pair", "", "pairing token from the hotel admin; required on first run")
	agentName := flag.String("name", "", "agent display name used during pairing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	env := cfg.Server.Environment
	if err := logger.Init(env); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting roomkey agent", zap.String("server_url", cfg.Agent.ServerURL))

	store := agentd.NewStore(cfg.Agent.StateDir)
	identity, err := store.LoadIdentity()
	if err != nil {
		logger.Fatal("Failed to load agent identity", zap.Error(err))
	}

	creds, err := store.LoadCredentials()
	if err != nil {
		logger.Fatal("Failed to load agent credentials", zap.Error(err))
	}

	if creds == nil {
		if *pairToken == "" {
			logger.Fatal("Agent is not paired. Run again with -pair <token> (and optionally -name).")
		}
		creds, err = pairAgent(cfg, identity, *pairToken, *agentName)
		if err != nil {
			logger.Fatal("Pairing failed", zap.Error(err))
		}
		if err := store.SaveCredentials(creds); err != nil {
			logger.Fatal("Failed to persist credentials", zap.Error(err))
		}
		logger.Info("Agent paired",
			zap.String("agent_id", creds.AgentID.String()),
			zap.String("hotel_id", creds.HotelID.String()),
		)
	}

	client := agentd.NewClient(cfg.Agent.ServerURL, creds.AgentToken)
	bridgeClient := bridge.NewClient(cfg.Bridge)
	hub := agentd.NewHub()
	runner := agentd.NewRunner(client, creds, bridgeClient, cfg.Sequencer, cfg.Agent, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if mqttClient := subscribeQueueEvents(cfg, creds, runner); mqttClient != nil {
		defer mqttClient.Disconnect()
	}

	go runner.Run(ctx)

	addr := net.JoinHostPort("127.0.0.1", cfg.Agent.LocalPort)
	server := &http.Server{
		Addr:        addr,
		Handler:     agentd.NewLocalServer(runner, hub),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("Local agent API starting", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start local API", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down agent")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown local API", zap.Error(err))
	}

	logger.Info("Agent exited")
}

func pairAgent(cfg *config.Config, identity *agentd.Identity, token, name string) (*agentd.Credentials, error) {
	if name == "" {
		name = identity.Hostname
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := agentd.ConfirmPairing(ctx, cfg.Agent.ServerURL, &pairing.ConfirmRequest{
		PairingToken: token,
		Fingerprint:  identity.Fingerprint,
		AgentName:    name,
	})
	if err != nil {
		return nil, err
	}

	return &agentd.Credentials{
		AgentID:    resp.AgentID,
		AgentToken: resp.AgentToken,
		HotelID:    resp.HotelID,
		DeviceID:   resp.DeviceID,
	}, nil
}

// subscribeQueueEvents connects to the broker and wakes the runner on every
// queue event for this hotel. Returns nil when no broker is configured;
// polling alone is sufficient, just slower.
func subscribeQueueEvents(cfg *config.Config, creds *agentd.Credentials, runner *agentd.Runner) *mqtt.Client {
	if cfg.MQTT.Broker == "" {
		return nil
	}

	clientID := cfg.MQTT.ClientID
	if clientID == "" {
		clientID = "roomkey-agent-" + creds.AgentID.String()
	}

	mqttClient := mqtt.NewClient(&mqtt.Config{
		Broker:   cfg.MQTT.Broker,
		ClientID: clientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
	})
	if err := mqttClient.Connect(); err != nil {
		logger.Warn("Queue event subscription disabled", zap.Error(err))
		return nil
	}

	topic := notify.QueueTopic(cfg.MQTT.TopicPrefix, creds.HotelID)
	err := mqttClient.Subscribe(topic, byte(cfg.MQTT.QoS), func(topic string, payload []byte) {
		runner.Trigger()
	})
	if err != nil {
		logger.Warn("Queue event subscription failed", zap.Error(err))
		mqttClient.Disconnect()
		return nil
	}

	return mqttClient
}
