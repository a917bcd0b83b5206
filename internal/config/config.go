package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DecoyHost maps a hostname attackers might resolve inside the sandbox to a
// fixed RFC1918 address, suggesting an interesting internal network.
type DecoyHost struct {
	Hostname string
	Address  string
}

type Config struct {
	// Listener
	ListenHost  string
	ListenPort  int
	SSHBanner   string
	HostKeyPath string

	// Sandbox image/network
	HoneypotImage        string
	HoneypotNetwork      string
	ContainerCPULimit    float64
	ContainerMemoryLimit string
	ContainerTTLMinutes  int
	HoneypotHostname     string
	DecoyHosts           []DecoyHost

	// SFTP
	SFTPRoot string

	// Persistence
	MongoURI string
	MongoDB  string

	// Task queue
	RedisAddr string

	// Process
	HealthAddr string
	LogLevel   string
	LogFormat  string
}

func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		ListenHost:  getEnv("PROXY_LISTEN_HOST", "0.0.0.0"),
		ListenPort:  getEnvAsInt("PROXY_LISTEN_PORT", 2222),
		SSHBanner:   getEnv("SSH_BANNER", "SSH-2.0-OpenSSH_8.9p1"),
		HostKeyPath: getEnv("HOST_KEY_PATH", "proxy/keys/host_rsa"),

		HoneypotImage:        getEnv("HONEYPOT_IMAGE", "honeyshell-ubuntu"),
		HoneypotNetwork:      getEnv("HONEYPOT_NETWORK", "honeypot-net"),
		ContainerCPULimit:    getEnvAsFloat("CONTAINER_CPU_LIMIT", 0.5),
		ContainerMemoryLimit: getEnv("CONTAINER_MEMORY_LIMIT", "256m"),
		ContainerTTLMinutes:  getEnvAsInt("CONTAINER_TTL_MINUTES", 30),
		HoneypotHostname:     getEnv("HONEYPOT_HOSTNAME", "web-prod-01"),
		DecoyHosts:           defaultDecoyHosts(),

		SFTPRoot: getEnv("SFTP_ROOT", "/tmp/honeyshell-sftp"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "honeyshell"),

		RedisAddr: getEnv("REDIS_ADDR", "127.0.0.1:6379"),

		HealthAddr: getEnv("HEALTH_ADDR", ":8090"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "json"),
	}

	return cfg, nil
}

// defaultDecoyHosts is the fixed decoy table from the external interfaces
// contract; it is not presently configurable via environment.
func defaultDecoyHosts() []DecoyHost {
	return []DecoyHost{
		{Hostname: "db-internal", Address: "10.0.1.10"},
		{Hostname: "redis-internal", Address: "10.0.1.11"},
		{Hostname: "api-internal", Address: "10.0.1.12"},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
