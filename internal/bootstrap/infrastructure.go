package bootstrap

import (
	"log/slog"
	"os"

	"go.uber.org/fx"

	"github.com/verbo-app/roomsync/internal/api"
	"github.com/verbo-app/roomsync/internal/audio"
	"github.com/verbo-app/roomsync/internal/store"
)

func ProvideLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func ProvideStore(cfg *Config, log *slog.Logger) (store.Store, error) {
	if cfg.StorePath == "" {
		log.Warn("no store path configured, per-debate state will not survive restarts")
		return store.NewMemory(), nil
	}
	return store.OpenSQLite(cfg.StorePath)
}

func ProvideAPIClient(cfg *Config, log *slog.Logger) *api.Client {
	apiCfg := api.Config{BaseURL: cfg.APIBaseURL}
	if cfg.APIToken != "" {
		apiCfg.Token = api.StaticToken(cfg.APIToken)
	}
	return api.New(apiCfg, log)
}

func ProvideGrantService(cfg *Config) *audio.GrantService {
	return audio.NewGrantService(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, cfg.LiveKitURL)
}

func ProvideAudioManager(cfg *Config, grants *audio.GrantService, log *slog.Logger) *audio.Manager {
	// The engine runs headless; a real capture device is attached by the
	// embedding application. Without one the session is listen-only.
	return audio.NewManager(audio.NullDevice{}, grants, cfg.UserID, cfg.DebateID, log)
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideStore,
		ProvideAPIClient,
		ProvideGrantService,
		ProvideAudioManager,
	),
)
