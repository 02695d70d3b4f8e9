package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/shelf/internal/github"
	"github.com/MrSnakeDoc/shelf/internal/index"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/registry"
	"github.com/MrSnakeDoc/shelf/internal/scheduler"
	"github.com/MrSnakeDoc/shelf/internal/suggest"
)

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Version       string
	Commit        string
	BuildDate     string
	GoVersion     string
	AllowedHosts  []string // Host headers allowed to access the server
	AllowedCIDRS  []string // IPs allowed to access the server
	TrustProxy    bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateBurst     int      // per-IP burst on every route
	RatePerMinute int      // per-IP refill rate

	Storage     string        // registry storage provider ("redis" | "memory")
	RedisClient *redis.Client // nil unless Storage is redis

	Registry  *registry.Registry          // registered sources
	Index     *index.MemoryIndex          // document catalog
	Refresher *scheduler.CatalogRefresher // rebuilds Index on demand
	Suggest   *suggest.Controller         // repository name suggestions
	GitHub    *github.Client              // hosting API, for repository details
}
