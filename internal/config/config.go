// Package config provides runtime configuration values for both binaries.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds configuration knobs shared by the ingestion server and the
// fulfillment worker.
type Config struct {
	HTTPAddr        string
	RedisAddr       string
	RedisPoolSize   int
	MySQLDSN        string
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaGroupID    string
	AdmissionCap    int64
	WaitingRoomURL  string
	CallTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	return time.Duration(atoienv(key, defMs)) * time.Millisecond
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		RedisPoolSize:   atoienv("REDIS_POOL_SIZE", 100),
		MySQLDSN:        getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/flashsale?parseTime=true"),
		KafkaBrokers:    strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:      getenv("KAFKA_TOPIC", "orders"),
		KafkaGroupID:    getenv("KAFKA_GROUP_ID", "inventory-group"),
		AdmissionCap:    int64(atoienv("ADMISSION_CAP", 10000)),
		WaitingRoomURL:  getenv("WAITING_ROOM_URL", "http://localhost:8081/waiting-room.html"),
		CallTimeout:     durenvms("CALL_TIMEOUT_MS", 2000),
		ShutdownTimeout: durenvms("SHUTDOWN_TIMEOUT_MS", 5000),
	}
}
