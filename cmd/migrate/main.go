package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"query-responder-be/internal/model"
	"query-responder-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	index := flag.String("index", "hnsw", "vector index on document_chunks: hnsw, ivfflat or none")
	flag.Parse()

	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up Extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto: %v. Continuing...", err)
	}
	if err := database.EnsureVectorExtension(context.Background(), db); err != nil {
		log.Fatalf("Error: %v", err)
	}

	log.Println("Step 2: Running AutoMigrate...")
	if err := db.AutoMigrate(&model.DocumentChunk{}, &model.Feedback{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 3: Creating vector index...")
	if sql := indexSQL(*index); sql != "" {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to create vector index: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}

func indexSQL(kind string) string {
	const table = "document_chunks"
	switch kind {
	case "hnsw":
		return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_embedding_hnsw ON %s USING hnsw (embedding_value vector_cosine_ops);`, table, table)
	case "ivfflat":
		return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_embedding_ivfflat ON %s USING ivfflat (embedding_value vector_cosine_ops) WITH (lists = 100);`, table, table)
	default:
		return ""
	}
}
