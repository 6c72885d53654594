// Loader: populates magazine_info and magazine_content from one CSV
// with columns title, author, publication_date, category, content.
// Boundary tooling; embeddings are filled later by the backfill worker.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/JyotiRSharma/hybrid-search/internal/config"
	logpkg "github.com/JyotiRSharma/hybrid-search/internal/logger"
	"github.com/JyotiRSharma/hybrid-search/internal/store/postgres"
)

var dateLayouts = []string{"2006-01-02", "02/01/06", "01/02/06", "02-01-2006", "01-02-2006"}

func main() {
	var (
		csvPath = flag.String("csv", "", "CSV with title,author,publication_date,category,content (required)")
		dsn     = flag.String("dsn", "", "store DSN (default: database.dsn from config)")
		batch   = flag.Int("batch", 256, "batch size for content inserts")
		limit   = flag.Int("limit", 0, "cap rows loaded from the CSV (0 = no cap)")
	)
	flag.Parse()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if *csvPath == "" {
		logger.Fatal("-csv is required")
	}

	store, err := postgres.Open(postgres.Config{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		VectorDims:   cfg.Embedding.Dimensions,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure schema", zap.Error(err))
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		logger.Fatal("Failed to open CSV", zap.Error(err))
	}
	defer f.Close()

	loaded, err := load(ctx, store, f, *batch, *limit, logger)
	if err != nil {
		logger.Fatal("Load failed", zap.Error(err))
	}
	logger.Info("Load complete", zap.Int("rows", loaded))
}

// columns maps normalized header names to column indexes.
type columns struct {
	title, author, date, category, content int
}

func load(ctx context.Context, store *postgres.Store, r io.Reader, batchSize, limit int, logger *zap.Logger) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, err
	}
	cols, err := mapColumns(header)
	if err != nil {
		return 0, err
	}

	// Magazines repeat across content rows; cache their ids by the four
	// identifying attributes.
	magIDs := make(map[string]int64)
	var batch []postgres.ContentInsert
	loaded := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.InsertContents(ctx, batch); err != nil {
			return err
		}
		loaded += len(batch)
		batch = batch[:0]
		return nil
	}

	for limit <= 0 || loaded+len(batch) < limit {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return loaded, err
		}

		title := strings.TrimSpace(field(record, cols.title))
		author := strings.TrimSpace(field(record, cols.author))
		category := strings.TrimSpace(field(record, cols.category))
		if category == "" {
			category = "general"
		}
		pubDate := normalizeDate(field(record, cols.date))
		content := field(record, cols.content)

		key := title + "\x00" + author + "\x00" + pubDate.Format("2006-01-02") + "\x00" + category
		magID, ok := magIDs[key]
		if !ok {
			magID, err = store.EnsureMagazine(ctx, title, author, pubDate, category)
			if err != nil {
				return loaded, err
			}
			magIDs[key] = magID
		}

		batch = append(batch, postgres.ContentInsert{MagazineID: magID, Content: content})
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return loaded, err
			}
			logger.Info("progress", zap.Int("rows", loaded), zap.Int("magazines", len(magIDs)))
		}
	}

	if err := flush(); err != nil {
		return loaded, err
	}
	return loaded, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// mapColumns matches headers case- and punctuation-insensitively, with
// common aliases for the content column.
func mapColumns(header []string) (columns, error) {
	byKey := make(map[string]int, len(header))
	for i, h := range header {
		byKey[normKey(h)] = i
	}
	find := func(names ...string) int {
		for _, n := range names {
			if i, ok := byKey[n]; ok {
				return i
			}
		}
		return -1
	}
	cols := columns{
		title:    find("title"),
		author:   find("author"),
		date:     find("publicationdate"),
		category: find("category"),
		content:  find("content", "article", "text", "body"),
	}
	if cols.title < 0 || cols.author < 0 || cols.date < 0 || cols.category < 0 || cols.content < 0 {
		return columns{}, errMissingColumns(header)
	}
	return cols, nil
}

type errMissingColumns []string

func (e errMissingColumns) Error() string {
	return "CSV must have title, author, publication_date, category, content; found: " + strings.Join(e, ", ")
}

func normKey(k string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(k) {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// normalizeDate tries the known layouts; unparseable dates fall back to
// 2024-01-01 rather than dropping the row.
func normalizeDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}
