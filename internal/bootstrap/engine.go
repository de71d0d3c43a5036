package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/verbo-app/roomsync/internal/api"
	"github.com/verbo-app/roomsync/internal/audio"
	"github.com/verbo-app/roomsync/internal/debate"
	"github.com/verbo-app/roomsync/internal/realtime"
	"github.com/verbo-app/roomsync/internal/room"
	"github.com/verbo-app/roomsync/internal/store"
)

// ProvideManager assembles one room attachment: the dual sync channel,
// the reconciliation engine, and the join/role controller around a single
// debate id.
func ProvideManager(cfg *Config, client *api.Client, st store.Store, audioMgr *audio.Manager, log *slog.Logger, shutdowner fx.Shutdowner) *room.Manager {
	identity := debate.Identity{
		UserID:      cfg.UserID,
		DisplayName: cfg.DisplayName,
		Handle:      cfg.Handle,
		Avatar:      cfg.Avatar,
	}

	// The channel's participant polls gate on the manager's session; the
	// closure resolves after both exist.
	var mgr *room.Manager
	joined := func() bool {
		if mgr == nil {
			return false
		}
		phase := mgr.Session().Phase()
		return phase == room.PhaseJoined || phase == room.PhaseJoining
	}

	channel := realtime.NewDualChannel(realtime.Config{
		WSBaseURL:           cfg.WSBaseURL,
		ParticipantInterval: cfg.ParticipantInterval,
		StatusInterval:      cfg.StatusInterval,
	}, client, cfg.DebateID, cfg.UserID, joined, log)

	mgr = room.NewManager(room.ManagerConfig{
		DebateID: cfg.DebateID,
		Identity: identity,
		Backend:  client,
		Channel:  channel,
		Audio:    audioMgr,
		Store:    st,
		Log:      log,
		OnExit: func() {
			// Background-observed end: the whole process goes down, the
			// deliberate hard reset that guarantees nothing stale lingers.
			log.Info("debate ended, shutting down", "debateId", cfg.DebateID)
			_ = shutdowner.Shutdown()
		},
	})
	return mgr
}

func StartManager(lc fx.Lifecycle, mgr *room.Manager, log *slog.Logger, cfg *Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("attaching to room", "debateId", cfg.DebateID, "userId", cfg.UserID)
			mgr.Start(context.WithoutCancel(ctx))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			mgr.Close()
			return nil
		},
	})
}

var EngineModule = fx.Options(
	fx.Provide(ProvideManager),
	fx.Invoke(StartManager),
)
