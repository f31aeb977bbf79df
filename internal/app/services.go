package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nhle/tracimfeed/internal/activity"
	"github.com/nhle/tracimfeed/internal/cache"
	"github.com/nhle/tracimfeed/internal/credential"
	"github.com/nhle/tracimfeed/internal/model"
	"github.com/nhle/tracimfeed/internal/store"
	appsync "github.com/nhle/tracimfeed/internal/sync"
	"github.com/nhle/tracimfeed/internal/tracim"
)

// dialTimeout bounds the Redis connection check.
const dialTimeout = 3 * time.Second

// Services is everything one connected feed needs.
type Services struct {
	API        *tracim.API
	Cache      *cache.ContentCache
	Bridge     *Bridge
	Snapshots  *store.SnapshotPublisher
	Notifier   *store.FlashNotifier
	Controller *activity.Controller
	Poller     *appsync.Poller
	Scope      activity.Scope
	FeedKey    string

	userID int
	redis  *redis.Client
	log    *zap.Logger
}

// APIKeyFunc returns the API key of a user.
type APIKeyFunc func(username string) (string, error)

// NewServices connects the feed of cfg. The API key comes from apiKey,
// or from the keyring when apiKey is nil. A Redis server that cannot be
// reached disables caching instead of failing.
func NewServices(
	ctx context.Context,
	cfg *model.AppConfig,
	st store.Store,
	apiKey APIKeyFunc,
	log *zap.Logger,
) (*Services, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if apiKey == nil {
		apiKey = credential.APIKey
	}

	key, err := apiKey(cfg.Server.Username)
	if err != nil {
		return nil, fmt.Errorf("loading API key: %w", err)
	}

	client := tracim.NewClient(
		cfg.Server.BaseURL,
		cfg.Server.Username,
		key,
		tracim.WithRateLimit(cfg.Server.RequestsPerSecond),
	)
	api := tracim.NewAPI(client)

	svc := &Services{
		API:     api,
		Scope:   activity.Scope{WorkspaceID: cfg.Feed.WorkspaceID},
		FeedKey: store.FeedKey(cfg.Server.UserID, cfg.Feed.WorkspaceID),
		userID:  cfg.Server.UserID,
		log:     log,
	}

	var feedAPI activity.FeedAPI = api
	if cfg.Cache.RedisAddr != "" {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		rc, err := cache.Dial(dialCtx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
		cancel()
		if err != nil {
			log.Warn("content cache disabled", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		} else {
			svc.redis = rc
			svc.Cache = cache.NewContentCache(api, rc, time.Duration(cfg.Cache.TTLSec)*time.Second, log)
			feedAPI = svc.Cache
		}
	}

	svc.Bridge = NewBridge()
	svc.Snapshots = store.NewSnapshotPublisher(st, svc.FeedKey, svc.Bridge, log)
	svc.Notifier = store.NewFlashNotifier(st, svc.Bridge.Flash, log)

	svc.Controller = activity.NewController(
		activity.Config{UserID: cfg.Server.UserID},
		feedAPI,
		svc.Snapshots,
		svc.Notifier,
		nil,
		log,
	)
	svc.Poller = appsync.New(feedAPI, svc.Controller, appsync.Config{
		UserID:      cfg.Server.UserID,
		WorkspaceID: cfg.Feed.WorkspaceID,
		Interval:    time.Duration(cfg.Feed.PollIntervalSec) * time.Second,
		PageSize:    cfg.Feed.ActivitiesPerPage,
	}, log)

	return svc, nil
}

// LoadWorkspaces hands the user's workspaces to the controller so the
// visibility rules can use the user's roles. Failures are logged; the feed
// then shows every activity the server returns.
func (s *Services) LoadWorkspaces(ctx context.Context) {
	workspaces, err := s.API.GetUserWorkspaces(ctx, s.userID)
	if err != nil {
		s.log.Warn("loading workspaces failed", zap.Int("user_id", s.userID), zap.Error(err))
		return
	}
	s.Controller.SetWorkspaces(workspaces)
}

// Close stops polling, cancels loads and releases connections.
func (s *Services) Close() {
	s.Poller.Stop()
	s.Controller.Close()
	s.Bridge.Close()
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Debug("closing redis", zap.Error(err))
		}
	}
	if s.Cache != nil {
		hits, misses := s.Cache.Stats()
		s.log.Info("content cache stats", zap.Int64("hits", hits), zap.Int64("misses", misses))
	}
}
