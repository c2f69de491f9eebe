package main

import (
	"context"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/birdwatch/birdwatch-api/internal/config"
	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/admin"
	"github.com/birdwatch/birdwatch-api/internal/domain/auth"
	"github.com/birdwatch/birdwatch-api/internal/domain/bird"
	"github.com/birdwatch/birdwatch-api/internal/domain/birdicon"
	"github.com/birdwatch/birdwatch-api/internal/domain/friendship"
	"github.com/birdwatch/birdwatch-api/internal/domain/moderation"
	"github.com/birdwatch/birdwatch-api/internal/domain/photo"
	"github.com/birdwatch/birdwatch-api/internal/domain/post"
	"github.com/birdwatch/birdwatch-api/internal/domain/search"
	"github.com/birdwatch/birdwatch-api/internal/domain/user"
	"github.com/birdwatch/birdwatch-api/internal/middleware"
	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
	"github.com/birdwatch/birdwatch-api/internal/pkg/imaging"
	"github.com/birdwatch/birdwatch-api/internal/pkg/jwt"
	"github.com/birdwatch/birdwatch-api/internal/pkg/logger"
	"github.com/birdwatch/birdwatch-api/internal/pkg/realtime"
	pkgresponse "github.com/birdwatch/birdwatch-api/internal/pkg/response"
	"github.com/birdwatch/birdwatch-api/internal/pkg/storage"
)

// handlers groups the HTTP handlers mounted under /api/v1.
type handlers struct {
	auth       *auth.Handler
	users      *user.Handler
	friends    *friendship.Handler
	posts      *post.Handler
	birds      *bird.Handler
	birdIcons  *birdicon.Handler
	search     *search.Handler
	moderation *moderation.Handler
	admin      *admin.Handler
}

// guards are the middlewares that gate the API.
type guards struct {
	auth      func(http.Handler) http.Handler
	optional  func(http.Handler) http.Handler
	adminOnly func(http.Handler) http.Handler
	authLimit func(http.Handler) http.Handler
}

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		LogFile:     cfg.LogFile,
		Service:     "birdwatch-api",
	})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting BirdWatch API")

	db, err := database.NewPostgres(cfg.DatabaseURL, database.DefaultPoolConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if cfg.MigrateOnStart {
		if err := database.MigrateUp(db); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	st, err := storage.New(storage.Config{
		Driver:      cfg.StorageDriver,
		S3Endpoint:  cfg.S3Endpoint,
		S3Region:    cfg.S3Region,
		S3Bucket:    cfg.S3Bucket,
		S3AccessKey: cfg.S3AccessKey,
		S3SecretKey: cfg.S3SecretKey,
		S3PublicURL: cfg.S3PublicURL,
		LocalPath:   cfg.LocalStoragePath,
		LocalURL:    cfg.LocalStorageURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage")
	}
	images := imaging.NewProcessor(imaging.DefaultConfig())
	tx := database.NewTxManager(db)

	// ---------- WebSocket hub ----------
	hub := realtime.NewHub(redis)
	go hub.Run()
	defer hub.Shutdown()

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	friendshipRepo := friendship.NewRepository(db)
	photoRepo := photo.NewRepository(db)
	postRepo := post.NewRepository(db)
	birdRepo := bird.NewRepository(db)
	birdIconRepo := birdicon.NewRepository(db)
	moderationRepo := moderation.NewRepository(db)
	adminRepo := admin.NewRepository(db)

	blobs := photo.NewOutbox(db)
	tokens := auth.NewRedisTokenStore(redis)

	// ---------- Services ----------
	friendshipService := friendship.NewService(friendshipRepo, userRepo, hub)
	userService := user.NewService(userRepo, friendshipService, st, images, blobs, tx)
	authService := auth.NewService(userRepo, jwtService, tokens)
	birdService := bird.NewService(birdRepo)
	postService := post.NewService(post.Deps{
		Repo:    postRepo,
		Photos:  photoRepo,
		Blobs:   blobs,
		Uploads: photo.NewSignal(redis),
		Friends: friendshipService,
		Authors: userRepo,
		Storage: st,
		Tx:      tx,
	})
	birdIconService := birdicon.NewService(birdicon.Deps{
		Repo:     birdIconRepo,
		Birds:    birdRepo,
		Blobs:    blobs,
		Storage:  st,
		Tx:       tx,
		Notifier: hub,
	})
	moderationService := moderation.NewService(moderation.Deps{
		Repo:     moderationRepo,
		Posts:    postRepo,
		Purger:   postService,
		Users:    userRepo,
		Friends:  friendshipService,
		Tx:       tx,
		Notifier: hub,
		RadiusKm: cfg.ModeratorRadiusKm,
	})
	adminService := admin.NewService(admin.Deps{
		Repo:          adminRepo,
		Users:         userRepo,
		Photos:        photoRepo,
		Blobs:         blobs,
		Tx:            tx,
		InactiveAfter: cfg.InactiveAfter,
	})
	searchService := search.NewService(birdService, postService)

	// ---------- Handlers ----------
	h := handlers{
		auth:       auth.NewHandler(authService),
		users:      user.NewHandler(userService),
		friends:    friendship.NewHandler(friendshipService),
		posts:      post.NewHandler(postService, st),
		birds:      bird.NewHandler(birdService),
		birdIcons:  birdicon.NewHandler(birdIconService),
		search:     search.NewHandler(searchService, st),
		moderation: moderation.NewHandler(moderationService),
		admin:      admin.NewHandler(adminService),
	}
	wsHandler := realtime.NewHandler(hub, cfg.AllowedOrigins)

	activity := user.NewActivityTracker(userRepo, redis)
	g := guards{
		auth: func(next http.Handler) http.Handler {
			return middleware.Auth(jwtService, tokens)(middleware.TrackActivity(activity)(next))
		},
		optional: func(next http.Handler) http.Handler {
			return middleware.OptionalAuth(jwtService, tokens)(middleware.TrackActivity(activity)(next))
		},
		adminOnly: middleware.RequireRole(access.RoleAdmin),
		authLimit: middleware.RateLimit(middleware.NewRedisCounter(redis), "auth", 20, time.Minute),
	}

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// Browsers cannot set headers on websocket upgrades.
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		if token := r.URL.Query().Get("token"); token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		g.auth(http.HandlerFunc(wsHandler.ServeWS)).ServeHTTP(w, r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	if !cfg.IsProduction() {
		r.Handle("/debug/vars", expvar.Handler())
	}

	if local, ok := st.(*storage.LocalStorage); ok {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Dir())))
		r.Handle("/uploads/*", fs)
	}

	r.Route("/api/v1", func(r chi.Router) {
		mountAPI(r, h, g)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server exited properly")
}

// mountAPI registers every domain router on r.
func mountAPI(r chi.Router, h handlers, g guards) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{"message": "pong"})
	})

	r.With(g.authLimit).Mount("/auth", h.auth.Routes(g.auth))
	r.Mount("/users", h.users.Routes(g.auth))
	r.Mount("/friends", h.friends.Routes(g.auth))
	r.Mount("/posts", h.posts.Routes(g.auth, g.optional))
	r.Mount("/birds", h.birds.Routes())
	r.Mount("/bird-icons", h.birdIcons.Routes(g.auth))
	r.Mount("/search", h.search.Routes(g.optional))
	r.Mount("/moderation", h.moderation.Routes(g.auth))
	r.Mount("/admin", h.admin.Routes(g.auth, g.adminOnly))
}
