package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"plantcare/internal/commandqueue"
	"plantcare/internal/config"
	"plantcare/internal/db"
	"plantcare/internal/mqtt"
	"plantcare/internal/notify"
	"plantcare/internal/redis"
	"plantcare/internal/rules"
	"plantcare/internal/taskqueue"
	"plantcare/internal/telemetryqueue"
	"plantcare/internal/worker"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

// Standalone automation worker: consumes telemetry batches and runs rule
// evaluation without the web boundary. Per-device ordering holds as long as
// a device's stream is consumed by one process.
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

	redisClient := redis.NewRedisClient(cfg.Redis.Addr)

	var mqttClient MQTT.Client
	if cfg.MQTT.Broker != "" {
		mqttClient, err = mqtt.NewMQTTClient(cfg.MQTT.Broker, cfg.MQTT.ClientID+"-worker")
		if err != nil {
			log.Fatalf("Failed to connect to MQTT: %v", err)
		}
	}

	notifier := notify.NewNotifier(mqttClient)
	go taskqueue.StartWorkers(cfg.Redis.Addr, cfg.Automation.WorkerConcurrency, notifier)

	telemQueue := telemetryqueue.NewQueue(redisClient)
	cmdQueue := commandqueue.New(dbConn, cfg.Automation.CoalescePendingCommands)

	automationWorker := worker.New(dbConn, cmdQueue, rules.NewEngine(),
		cfg.Automation.SuppressDuplicateAlerts, taskqueue.EnqueueAlertNotification)

	ctx, stop := context.WithCancel(context.Background())
	go telemQueue.Run(ctx, automationWorker.HandleBatch)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	stop()
	taskqueue.StopWorkers()
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
	log.Println("Worker shutdown complete")
}
