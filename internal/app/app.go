// internal/app/app.go
package app

import (
	"context"
	"log"
	"time"

	"github.com/pranay-lamse/crimedigest/internal/config"
	db "github.com/pranay-lamse/crimedigest/internal/core/database"
	"github.com/pranay-lamse/crimedigest/internal/core/extraction"
	"github.com/pranay-lamse/crimedigest/internal/core/llm"
	objectclient "github.com/pranay-lamse/crimedigest/internal/core/object-client"
	"github.com/pranay-lamse/crimedigest/internal/core/rasterizer"
)

type App struct {
	DBClient     db.DbClient
	ObjectClient objectclient.ObjectClient
	Pipeline     *extraction.Pipeline
	Server       *Server

	vision *llm.GeminiVision
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	vision, err := llm.NewGeminiVision(appCtx, cfg.AIAPIKey, cfg.GenModel,
		time.Duration(cfg.InferenceTimeoutSecs)*time.Second)
	if err != nil {
		return nil, err
	}

	retry := llm.NewRetryPolicy(cfg.MaxRetries, time.Duration(cfg.RetryBaseDelaySecs)*time.Second)
	raster := rasterizer.NewFitzRasterizer(cfg.RasterDPI)

	pipeline := extraction.NewPipeline(raster, vision, retry, dbClient,
		time.Duration(cfg.StoreTimeoutSecs)*time.Second, cfg.ContinueOnStoreError)

	server := NewServer(cfg, dbClient, objClient, pipeline)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Pipeline:     pipeline,
		Server:       server,
		vision:       vision,
	}, nil
}

func (a *App) Close() {
	if a.vision != nil {
		_ = a.vision.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
