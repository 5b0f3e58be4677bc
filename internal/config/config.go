package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds node configuration: CLI flags first, then environment,
// then .env, then defaults.
type Config struct {
	// SignalingURL is the TCP address of the signaling service this node
	// registers with and exchanges control messages over.
	SignalingURL string

	// TraverseNAT, when set, advertises AnnounceIP in place of each
	// listener's local interface address in generated ICE candidates.
	TraverseNAT bool
	AnnounceIP  string

	// Ingress and Egress are reported in registerMediaServer and recorded
	// in the registration audit row. The dispatcher does not check them:
	// createWebRTCIngress and createWebRTCEgress are handled either way.
	Ingress bool
	Egress  bool

	// Workers is the number of media-engine worker processes to start.
	Workers int

	// Region is an opaque label reported at registerMediaServer time.
	Region string

	// PortTransport is the base UDP/TCP port each worker's WebRtcServer
	// listens on.
	PortTransport int

	LogLevel string
	Env      string

	KeepaliveIntervalSec int
	KeepaliveTimeoutSec  int

	// AdminAddr is the address the node's local HTTP surface (health,
	// metrics, audit endpoints) listens on.
	AdminAddr string
}

// Load parses and returns node configuration.
// Priority: command-line flags > environment variables > .env file > defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	url := flag.String("url", getEnv("SIGNALING_URL", "127.0.0.1:9000"), "signaling service address (host:port)")
	traverseNAT := flag.Bool("traverse-nat", getEnvBool("TRAVERSE_NAT", false), "advertise announceip in ICE candidates instead of local interface addresses")
	announceIP := flag.String("announceip", getEnv("ANNOUNCE_IP", ""), "public IP to announce when traverse-nat is set")
	ingress := flag.Bool("ingress", getEnvBool("INGRESS", true), "accept ingress transport creation")
	egress := flag.Bool("egress", getEnvBool("EGRESS", true), "accept egress transport creation")
	workers := flag.Int("workers", getEnvInt("WORKERS", 1), "number of media-engine workers to start")
	region := flag.String("region", getEnv("REGION", "default"), "region label reported at registration")
	portTransport := flag.Int("port-transport", getEnvInt("PORT_TRANSPORT", 40000), "base port for worker transport listeners")
	logLevel := flag.String("log-level", getEnv("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	env := flag.String("env", getEnv("ENVIRONMENT", "development"), "environment (development, staging, production)")
	keepaliveInterval := flag.Int("keepalive-interval", getEnvInt("KEEPALIVE_INTERVAL_SEC", 10), "keepalive staleness check interval in seconds")
	keepaliveTimeout := flag.Int("keepalive-timeout", getEnvInt("KEEPALIVE_TIMEOUT_SEC", 30), "keepalive staleness timeout in seconds")
	adminAddr := flag.String("admin-addr", getEnv("ADMIN_ADDR", ":8080"), "address the local health/metrics/audit HTTP surface listens on")
	flag.Parse()

	cfg := &Config{
		SignalingURL:         *url,
		TraverseNAT:          *traverseNAT,
		AnnounceIP:           *announceIP,
		Ingress:              *ingress,
		Egress:               *egress,
		Workers:              *workers,
		Region:               *region,
		PortTransport:        *portTransport,
		LogLevel:             strings.ToLower(*logLevel),
		Env:                  strings.ToLower(*env),
		KeepaliveIntervalSec: *keepaliveInterval,
		KeepaliveTimeoutSec:  *keepaliveTimeout,
		AdminAddr:            *adminAddr,
	}

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("config: workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.TraverseNAT && cfg.AnnounceIP == "" {
		return nil, fmt.Errorf("config: traverse-nat requires announceip")
	}
	if !cfg.Ingress && !cfg.Egress {
		return nil, fmt.Errorf("config: at least one of ingress or egress must be enabled")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
