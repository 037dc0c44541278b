package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("MYSQL_DSN", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_GROUP_ID", "")
	t.Setenv("ADMISSION_CAP", "")
	t.Setenv("WAITING_ROOM_URL", "")
	t.Setenv("CALL_TIMEOUT_MS", "")
	c := Load()
	if c.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr default")
	}
	if c.RedisAddr != "localhost:6379" {
		t.Fatalf("RedisAddr default")
	}
	if len(c.KafkaBrokers) != 1 || c.KafkaBrokers[0] != "localhost:9092" {
		t.Fatalf("KafkaBrokers default: %v", c.KafkaBrokers)
	}
	if c.KafkaTopic != "orders" || c.KafkaGroupID != "inventory-group" {
		t.Fatalf("kafka topic/group default")
	}
	if c.AdmissionCap != 10000 {
		t.Fatalf("AdmissionCap default")
	}
	if c.CallTimeout != 2*time.Second {
		t.Fatalf("CallTimeout default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("ADMISSION_CAP", "25")
	t.Setenv("WAITING_ROOM_URL", "https://sale.example.com/hold")
	t.Setenv("CALL_TIMEOUT_MS", "500")
	c := Load()
	if c.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr env")
	}
	if len(c.KafkaBrokers) != 2 || c.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("KafkaBrokers env: %v", c.KafkaBrokers)
	}
	if c.AdmissionCap != 25 {
		t.Fatalf("AdmissionCap env")
	}
	if c.WaitingRoomURL != "https://sale.example.com/hold" {
		t.Fatalf("WaitingRoomURL env")
	}
	if c.CallTimeout != 500*time.Millisecond {
		t.Fatalf("CallTimeout env")
	}
}
