package bootstrap

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string

	APIBaseURL string
	WSBaseURL  string
	APIToken   string

	UserID      string
	DisplayName string
	Handle      string
	Avatar      string

	DebateID string

	StorePath string

	ParticipantInterval time.Duration
	StatusInterval      time.Duration

	LiveKitAPIKey    string
	LiveKitAPISecret string
	LiveKitURL       string
}

func LoadConfig() *Config {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8090"),

		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:3000/api"),
		WSBaseURL:  getEnv("WS_BASE_URL", "ws://localhost:3000"),
		APIToken:   getEnv("API_TOKEN", ""),

		UserID:      getEnv("USER_ID", ""),
		DisplayName: getEnv("USER_DISPLAY_NAME", ""),
		Handle:      getEnv("USER_HANDLE", ""),
		Avatar:      getEnv("USER_AVATAR", ""),

		DebateID: getEnv("DEBATE_ID", ""),

		StorePath: getEnv("STORE_PATH", "roomsync.db"),

		ParticipantInterval: getEnvDuration("PARTICIPANT_POLL_INTERVAL", 0),
		StatusInterval:      getEnvDuration("STATUS_POLL_INTERVAL", 0),

		LiveKitAPIKey:    getEnv("LIVEKIT_API_KEY", "devkey"),
		LiveKitAPISecret: getEnv("LIVEKIT_API_SECRET", "devsecret-devsecret-devsecret-00"),
		LiveKitURL:       getEnv("LIVEKIT_URL", "ws://localhost:7880"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
