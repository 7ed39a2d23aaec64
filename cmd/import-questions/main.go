package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openqb/qbank-backend/internal/config"
	"github.com/openqb/qbank-backend/internal/database"
	"github.com/openqb/qbank-backend/internal/logger"
	"github.com/openqb/qbank-backend/internal/moodle"
	"github.com/openqb/qbank-backend/internal/qbank"
	"github.com/openqb/qbank-backend/internal/repository"
)

// import-questions loads questions into the bank from a file: Moodle XML quiz
// exports (.xml) or legacy JSON dumps (.json). XML imports deduplicate
// against the existing bank; JSON imports keep the IDs in the file.
func main() {
	var dryRun bool
	flag.BoolVar(&dryRun, "dry-run", false, "Parse and report without writing to the database")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: import-questions [flags] <file.xml|file.json>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to read input file")
	}

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		existing, err := questionRepo.List(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load existing questions")
		}

		result, err := moodle.Import(data, existing, time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("Import failed")
		}

		if dryRun {
			fmt.Printf("Dry run: %d question(s) would be imported, %d duplicate(s) skipped\n",
				len(result.NewQuestions), result.Skipped)
			return
		}
		if len(result.NewQuestions) > 0 {
			if err := questionRepo.InsertBatch(ctx, result.NewQuestions); err != nil {
				log.Fatal().Err(err).Msg("Failed to insert questions")
			}
		}
		fmt.Printf("Imported %d question(s), skipped %d duplicate(s)\n",
			len(result.NewQuestions), result.Skipped)

	case ".json":
		questions, err := qbank.ParseLegacyQuestions(data)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to parse legacy JSON")
		}

		if dryRun {
			fmt.Printf("Dry run: %d question(s) would be imported\n", len(questions))
			return
		}
		if err := questionRepo.InsertBatch(ctx, questions); err != nil {
			log.Fatal().Err(err).Msg("Failed to insert questions")
		}
		fmt.Printf("Imported %d question(s)\n", len(questions))

	default:
		log.Fatal().Str("file", path).Msg("Unsupported file type (want .xml or .json)")
	}
}
