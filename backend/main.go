package main

import (
	"log"

	"skillpath/backend/catalog"
	"skillpath/backend/config"
	"skillpath/backend/middleware"
	"skillpath/backend/routes"
	"skillpath/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	logger := utils.InitLogger()

	if cfg.CatalogPath != "" {
		if err := catalog.Seed(db, cfg.CatalogPath); err != nil {
			log.Fatalf("Error seeding catalog: %v", err)
		}
	}

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	routes.SetupRoutes(app, db, cfg, logger)

	log.Fatal(app.Listen(":" + cfg.ServerPort))
}
