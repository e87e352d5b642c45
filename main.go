package main

import (
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/actions"
	"github.com/Dominicksam/SmartLiving/internal/bridge"
	"github.com/Dominicksam/SmartLiving/internal/config"
	"github.com/Dominicksam/SmartLiving/internal/db"
	"github.com/Dominicksam/SmartLiving/internal/dispatch"
	"github.com/Dominicksam/SmartLiving/internal/fanout"
	"github.com/Dominicksam/SmartLiving/internal/ingest"
	smartmqtt "github.com/Dominicksam/SmartLiving/internal/mqtt"
	"github.com/Dominicksam/SmartLiving/internal/notify"
	"github.com/Dominicksam/SmartLiving/internal/registry"
	"github.com/Dominicksam/SmartLiving/internal/rules"
	"github.com/Dominicksam/SmartLiving/internal/scheduler"
	"github.com/Dominicksam/SmartLiving/internal/taskqueue"
	"github.com/Dominicksam/SmartLiving/internal/web"

	"github.com/pion/mdns/v2"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	dbConn, err := db.NewDB(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})

	mqttClient, err := smartmqtt.NewMQTTClient(cfg.MQTT.Broker, cfg.MQTT.ClientID)
	if err != nil {
		slog.Error("failed to connect to MQTT broker", "error", err)
		os.Exit(1)
	}

	hub := fanout.NewHub()
	reg := registry.New(dbConn, registry.NewRedisPresenceCache(redisClient), cfg.Presence.OfflineAfter)
	readingCache := ingest.NewRedisReadingCache(redisClient)

	dispatcher := dispatch.NewDispatcher(dbConn, smartmqtt.NewCommandTransport(mqttClient))
	executor := actions.NewExecutor(dispatcher, notify.NewFanoutNotifier(hub))
	evaluator := rules.NewEvaluator(dbConn, executor, hub)

	taskClient := taskqueue.NewClient(cfg.Redis.Addr)
	defer taskClient.Close()

	worker := taskqueue.NewWorker(cfg.Redis.Addr, evaluator, 10)
	go func() {
		if err := worker.Run(); err != nil {
			slog.Error("rule evaluation workers stopped", "error", err)
		}
	}()

	pipeline := ingest.NewPipeline(reg, dbConn, hub, taskClient, readingCache)

	telemetrySub := smartmqtt.NewTelemetrySubscriber(mqttClient, pipeline)
	if err := telemetrySub.Start(); err != nil {
		slog.Error("failed to subscribe to telemetry", "error", err)
		os.Exit(1)
	}
	ackSub := smartmqtt.NewAckSubscriber(mqttClient, dispatcher)
	if err := ackSub.Start(); err != nil {
		slog.Error("failed to subscribe to command acks", "error", err)
		os.Exit(1)
	}

	sweeper := scheduler.NewSweeper(dbConn, hub, cfg.Presence.OfflineAfter, cfg.Presence.SweepInterval)
	if err := sweeper.Start(); err != nil {
		slog.Error("failed to start presence sweeper", "error", err)
		os.Exit(1)
	}

	webServer := web.NewWebServer(dbConn, reg, dispatcher, hub, readingCache, cfg.JWT.Secret)
	go func() {
		if err := webServer.Start(cfg.HTTP.Addr); err != nil {
			slog.Error("web server stopped", "error", err)
		}
	}()

	if cfg.MDNS.Enabled {
		go startMDNSServer(cfg.MDNS.LocalName)
	}

	if cfg.RemoteAccess.Enabled {
		go bridge.Start(bridge.Config{
			PublicWS:   cfg.RemoteAccess.PublicWS,
			LocalURL:   "127.0.0.1" + cfg.HTTP.Addr,
			AgentID:    cfg.RemoteAccess.AgentID,
			RetryDelay: time.Duration(cfg.RemoteAccess.RetryDelaySecs) * time.Second,
		})
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	sweeper.Stop()
	worker.Shutdown()
	hub.CloseAll()
	mqttClient.Disconnect(250)
	slog.Info("shutdown complete")
}

func startMDNSServer(localName string) {
	addr4, err := net.ResolveUDPAddr("udp4", mdns.DefaultAddressIPv4)
	if err != nil {
		slog.Warn("failed to resolve UDP4 address for mDNS", "error", err)
		return
	}
	addr6, err := net.ResolveUDPAddr("udp6", mdns.DefaultAddressIPv6)
	if err != nil {
		slog.Warn("failed to resolve UDP6 address for mDNS", "error", err)
		return
	}
	l4, err := net.ListenUDP("udp4", addr4)
	if err != nil {
		slog.Warn("failed to listen on UDP4 for mDNS", "error", err)
		return
	}
	l6, err := net.ListenUDP("udp6", addr6)
	if err != nil {
		slog.Warn("failed to listen on UDP6 for mDNS", "error", err)
		return
	}
	if _, err := mdns.Server(ipv4.NewPacketConn(l4), ipv6.NewPacketConn(l6), &mdns.Config{
		LocalNames: []string{localName},
	}); err != nil {
		slog.Warn("failed to start mDNS server", "error", err)
	}
}
