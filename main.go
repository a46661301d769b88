package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plantcare/auth"
	"plantcare/internal/commandqueue"
	"plantcare/internal/config"
	"plantcare/internal/db"
	"plantcare/internal/mqtt"
	"plantcare/internal/notify"
	"plantcare/internal/redis"
	"plantcare/internal/rules"
	"plantcare/internal/scheduler"
	"plantcare/internal/taskqueue"
	"plantcare/internal/telemetry"
	"plantcare/internal/telemetryqueue"
	"plantcare/internal/web"
	"plantcare/internal/worker"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/pion/mdns/v2"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConn, err := db.NewDB(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer dbConn.Close(context.Background())

	if err := dbConn.Migrate(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := redis.NewRedisClient(cfg.Redis.Addr)

	var mqttClient MQTT.Client
	if cfg.MQTT.Broker != "" {
		mqttClient, err = mqtt.NewMQTTClient(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			log.Fatalf("Failed to connect to MQTT: %v", err)
		}
	} else {
		log.Println("MQTT broker not configured, alert publishing over MQTT disabled")
	}

	notifier := notify.NewNotifier(mqttClient)
	go taskqueue.StartWorkers(cfg.Redis.Addr, cfg.Automation.WorkerConcurrency, notifier)

	telemQueue := telemetryqueue.NewQueue(redisClient)
	cmdQueue := commandqueue.New(dbConn, cfg.Automation.CoalescePendingCommands)
	validator := telemetry.NewValidator(dbConn, telemQueue)

	automationWorker := worker.New(dbConn, cmdQueue, rules.NewEngine(),
		cfg.Automation.SuppressDuplicateAlerts, taskqueue.EnqueueAlertNotification)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	go telemQueue.Run(workerCtx, automationWorker.HandleBatch)

	sched := scheduler.NewScheduler(dbConn, telemQueue)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	authModule := auth.NewAuthModule(dbConn, cfg.JWT.Secret,
		time.Duration(cfg.JWT.UserTokenTTLHours)*time.Hour,
		time.Duration(cfg.JWT.DeviceTokenTTLMin)*time.Minute)

	webServer := web.NewWebServer(dbConn, authModule, validator, cmdQueue, notifier)
	go webServer.Start(fmt.Sprintf(":%d", cfg.App.Port))

	if cfg.MDNS.Enabled {
		go startMDNSServer(cfg.MDNS.LocalName)
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	stopWorker()
	sched.Stop()
	taskqueue.StopWorkers()
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
	log.Println("Shutdown complete")
}

func startMDNSServer(localName string) {
	addr4, err := net.ResolveUDPAddr("udp4", mdns.DefaultAddressIPv4)
	if err != nil {
		log.Println("Failed to resolve UDP4 address for mDNS:", err)
		return
	}

	addr6, err := net.ResolveUDPAddr("udp6", mdns.DefaultAddressIPv6)
	if err != nil {
		log.Println("Failed to resolve UDP6 address for mDNS:", err)
		return
	}

	l4, err := net.ListenUDP("udp4", addr4)
	if err != nil {
		log.Println("Failed to listen on UDP4 for mDNS:", err)
		return
	}

	l6, err := net.ListenUDP("udp6", addr6)
	if err != nil {
		log.Println("Failed to listen on UDP6 for mDNS:", err)
		return
	}

	_, err = mdns.Server(ipv4.NewPacketConn(l4), ipv6.NewPacketConn(l6), &mdns.Config{
		LocalNames: []string{localName},
	})
	if err != nil {
		log.Println("Failed to start mDNS server:", err)
		return
	}
	log.Printf("mDNS server responding for %s", localName)
}
