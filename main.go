package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/booking-agent/api"
	"github.com/clinicdesk/booking-agent/booking"
	"github.com/clinicdesk/booking-agent/chat"
	"github.com/clinicdesk/booking-agent/config"
	"github.com/clinicdesk/booking-agent/embeddings"
	"github.com/clinicdesk/booking-agent/ingestion"
	"github.com/clinicdesk/booking-agent/llm"
	"github.com/clinicdesk/booking-agent/mail"
	"github.com/clinicdesk/booking-agent/retrieval"
	"github.com/clinicdesk/booking-agent/storage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "chat":
		chatCmd(cfg, logger, os.Args[2:])
	case "bookings":
		bookingsCmd(cfg, logger, os.Args[2:])
	default:
		logger.Error().Str("command", os.Args[1]).Msg("unknown command")
		printUsage()
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	if cfg.Environment == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func serveCmd(cfg config.Config, logger zerolog.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.HTTPAddr, "address for the HTTP server")
	ingestOnStart := flags.Bool("ingest", false, "ingest the data directory before serving")
	if err := flags.Parse(args); err != nil {
		logger.Fatal().Err(err).Msg("parse serve flags")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deps, cleanup, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("setup failed")
	}
	defer cleanup()

	if *ingestOnStart {
		report, err := deps.ingestor.IngestDirectory(ctx, cfg.DataDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("startup ingestion failed")
		}
		logger.Info().Int("documents", report.Documents).Int("chunks", report.Chunks).Msg("startup ingestion complete")
	}

	server := api.New(deps.chatSvc, deps.ingestor, deps.store, logger)
	httpServer := &http.Server{Addr: *addr, Handler: server.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", *addr).Msg("http server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}

func ingestCmd(cfg config.Config, logger zerolog.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	dataDir := flags.String("dir", cfg.DataDir, "path to the clinic document directory")
	if err := flags.Parse(args); err != nil {
		logger.Fatal().Err(err).Msg("parse ingest flags")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deps, cleanup, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("setup failed")
	}
	defer cleanup()

	report, err := deps.ingestor.IngestDirectory(ctx, *dataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("ingestion failed")
	}
	logger.Info().Int("documents", report.Documents).Int("chunks", report.Chunks).Int("skipped", len(report.Skipped)).Msg("ingestion complete")
}

func chatCmd(cfg config.Config, logger zerolog.Logger, args []string) {
	flags := flag.NewFlagSet("chat", flag.ExitOnError)
	ingestFirst := flags.Bool("ingest", true, "ingest the data directory before chatting")
	if err := flags.Parse(args); err != nil {
		logger.Fatal().Err(err).Msg("parse chat flags")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deps, cleanup, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("setup failed")
	}
	defer cleanup()

	if *ingestFirst {
		if _, err := deps.ingestor.IngestDirectory(ctx, cfg.DataDir); err != nil {
			logger.Warn().Err(err).Msg("ingestion failed, continuing without documents")
		}
	}

	fmt.Println("Clinic assistant ready. Ask a question or say \"book an appointment\". Ctrl-D to exit.")
	conversationID := ""
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		resp, err := deps.chatSvc.HandleMessage(ctx, conversationID, text)
		if err != nil {
			logger.Error().Err(err).Msg("turn failed")
			continue
		}
		conversationID = resp.ConversationID
		fmt.Println(resp.Reply)
		fmt.Println()
	}
	if err := scanner.Err(); err != nil {
		logger.Fatal().Err(err).Msg("read input")
	}
}

func bookingsCmd(cfg config.Config, logger zerolog.Logger, args []string) {
	flags := flag.NewFlagSet("bookings", flag.ExitOnError)
	search := flags.String("q", "", "filter by customer name or email substring")
	email := flags.String("email", "", "filter by exact customer email")
	phone := flags.String("phone", "", "filter by phone number (separators ignored)")
	if err := flags.Parse(args); err != nil {
		logger.Fatal().Err(err).Msg("parse bookings flags")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := storage.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection")
	}
	defer pool.Close()

	store := storage.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ensure schema")
	}

	bookings, err := store.ListBookings(ctx, storage.Filter{Search: *search, Email: *email, Phone: *phone})
	if err != nil {
		logger.Fatal().Err(err).Msg("list bookings")
	}

	if len(bookings) == 0 {
		fmt.Println("no bookings found")
		return
	}
	for _, b := range bookings {
		fmt.Printf("#%d  %s  %s %s  %s  <%s>  %s  [%s]\n",
			b.ID, b.Service, b.Date, b.Time, b.CustomerName, b.Email, b.Phone, b.Status)
	}
}

type dependencies struct {
	chatSvc  *chat.Service
	ingestor *ingestion.Service
	store    storage.BookingStore
}

// buildDependencies wires the collaborators for serve, ingest and chat.
// Postgres is optional: without a reachable pool the assistant still answers
// questions, and booking persistence reports its absence conversationally.
func buildDependencies(ctx context.Context, cfg config.Config, logger zerolog.Logger) (dependencies, func(), error) {
	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		return dependencies{}, nil, fmt.Errorf("llm setup: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		return dependencies{}, nil, fmt.Errorf("embedder setup: %w", err)
	}

	cleanup := func() {}
	var pool *pgxpool.Pool
	needsPostgres := cfg.Retrieval.VectorStore == config.VectorStorePostgres

	pool, err = storage.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err == nil {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			pool.Close()
			pool = nil
			err = pingErr
		}
	}
	if err != nil {
		if needsPostgres {
			return dependencies{}, nil, fmt.Errorf("postgres connection: %w", err)
		}
		logger.Warn().Err(err).Msg("postgres unavailable, bookings will not persist")
		pool = nil
	}
	if pool != nil {
		cleanup = pool.Close
	}

	var vectorStore retrieval.VectorStore
	if cfg.Retrieval.VectorStore == config.VectorStorePostgres {
		pgStore := retrieval.NewPostgresStore(pool, cfg.Embeddings.Dimension)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			cleanup()
			return dependencies{}, nil, fmt.Errorf("vector store schema: %w", err)
		}
		vectorStore = pgStore
	} else {
		vectorStore = retrieval.NewMemoryStore()
	}

	retriever := retrieval.New(vectorStore, embedder, llmClient, logger, retrieval.Options{
		TopK:         cfg.Retrieval.TopK,
		ChunkSize:    cfg.Retrieval.ChunkSize,
		ChunkOverlap: cfg.Retrieval.ChunkOverlap,
	})
	ingestor := ingestion.NewService(retriever, logger)

	var bookingStore storage.BookingStore
	if pool != nil {
		pgStore := storage.NewPostgresStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			cleanup()
			return dependencies{}, nil, fmt.Errorf("booking schema: %w", err)
		}
		bookingStore = pgStore
	}

	var mailer mail.Mailer
	smtpMailer, err := mail.NewSMTPMailer(cfg.SMTP)
	if err != nil {
		logger.Warn().Err(err).Msg("email disabled")
	} else {
		mailer = smtpMailer
	}

	rules := booking.Rules{
		PhoneMinDigits: cfg.Booking.PhoneMinDigits,
		PhoneMaxDigits: cfg.Booking.PhoneMaxDigits,
		KnownServices:  cfg.Booking.KnownServices,
	}
	extractor := booking.NewExtractor(llmClient, logger)
	machine := booking.NewMachine(extractor, rules, logger)
	classifier := chat.NewClassifier(llmClient, logger)
	router := chat.NewRouter(retriever, bookingStore, mailer, time.Duration(cfg.CollaboratorTimeoutSecs)*time.Second, logger)
	manager := chat.NewManager(cfg.HistoryLimit)
	chatSvc := chat.NewService(manager, classifier, machine, router, cfg.HistoryLimit, logger)

	return dependencies{chatSvc: chatSvc, ingestor: ingestor, store: bookingStore}, cleanup, nil
}

func printUsage() {
	fmt.Println(`Usage: booking-agent <command> [flags]

Commands:
  serve     start the HTTP API (use -ingest to index the data directory first)
  ingest    index the clinic documents from the data directory
  chat      interactive console session with the assistant
  bookings  list stored bookings (-q, -email, -phone filters)`)
}
