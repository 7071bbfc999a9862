// Certificate Chain Verifier CLI
// Wires a certificate retriever, signature verifier, feedback sinks
// and the chain walker into a runnable verifier: one-shot chain
// validation per argument, or a long-running HTTP API with -serve.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certen/mithril-verifier/pkg/chainwalker"
	"github.com/certen/mithril-verifier/pkg/config"
	"github.com/certen/mithril-verifier/pkg/entities"
	"github.com/certen/mithril-verifier/pkg/feedback"
	"github.com/certen/mithril-verifier/pkg/firestore"
	"github.com/certen/mithril-verifier/pkg/retriever"
	"github.com/certen/mithril-verifier/pkg/server"
	"github.com/certen/mithril-verifier/pkg/verification"
)

func main() {
	serve := flag.Bool("serve", false, "run the HTTP verification API instead of one-shot verification")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-serve] [certificate-hash ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New(os.Stdout, "[CertVerify] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	genesisVK, err := cfg.GenesisVerificationKey()
	if err != nil {
		logger.Fatalf("Failed to resolve genesis verification key: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	retr, cleanup, err := buildRetriever(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build retriever: %v", err)
	}
	defer cleanup()

	sink, fsClient, err := buildSink(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build feedback sink: %v", err)
	}
	if fsClient != nil {
		defer fsClient.Close()
	}

	verifier := verification.New(log.New(os.Stdout, "[SignatureVerifier] ", log.LstdFlags))

	if *serve {
		runServer(ctx, cfg, retr, verifier, genesisVK, sink, logger)
		return
	}

	hashes := flag.Args()
	if len(hashes) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	walker := chainwalker.New(retr, verifier,
		chainwalker.WithSink(sink),
		chainwalker.WithMaxSteps(cfg.MaxWalkSteps),
		chainwalker.WithLogger(log.New(os.Stdout, "[ChainWalker] ", log.LstdFlags)),
	)

	failed := false
	for _, hash := range hashes {
		start := time.Now()
		cert, err := walker.VerifyChain(ctx, hash, genesisVK)
		if err != nil {
			logger.Printf("FAIL %s: %v", hash, err)
			failed = true
			continue
		}
		logger.Printf("OK   %s (network=%s epoch=%d, %s)", cert.Hash, cert.Beacon.Network, cert.Beacon.Epoch, time.Since(start).Round(time.Millisecond))
	}
	if failed {
		os.Exit(1)
	}
}

// buildRetriever selects and constructs the configured certificate
// retriever, optionally wrapping it in a read-through cache.
func buildRetriever(cfg *config.Config, logger *log.Logger) (retriever.Retriever, func(), error) {
	cleanup := func() {}

	var base retriever.Retriever
	switch cfg.RetrieverKind {
	case config.RetrieverMemory:
		base = retriever.NewMemoryRetriever()
	case config.RetrieverHTTP:
		base = retriever.NewHTTPRetriever(cfg.AggregatorURL,
			retriever.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
	case config.RetrieverPostgres:
		pg, err := retriever.NewPostgresRetriever(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { pg.Close() }
		base = pg
	default:
		return nil, nil, fmt.Errorf("unknown retriever kind %q", cfg.RetrieverKind)
	}

	if !cfg.CacheEnabled {
		return base, cleanup, nil
	}

	var db dbm.DB
	var err error
	switch cfg.CacheBackend {
	case "memdb":
		db = dbm.NewMemDB()
	case "goleveldb":
		db, err = dbm.NewGoLevelDB("certificates", cfg.CacheDir)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open cache database: %w", err)
		}
	default:
		cleanup()
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
	logger.Printf("Certificate cache enabled (%s)", cfg.CacheBackend)

	prior := cleanup
	cleanup = func() {
		db.Close()
		prior()
	}
	return retriever.NewCachingRetriever(base, db), cleanup, nil
}

// buildSink composes the process-wide feedback sinks: Prometheus
// metrics always, Firestore when enabled.
func buildSink(ctx context.Context, cfg *config.Config, logger *log.Logger) (feedback.Sink, *firestore.Client, error) {
	metrics, err := feedback.NewMetricsSink(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, nil, fmt.Errorf("register metrics: %w", err)
	}
	sinks := []feedback.Sink{metrics}

	var fsClient *firestore.Client
	if cfg.FirestoreEnabled {
		fsClient, err = firestore.NewClient(ctx, &firestore.ClientConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentialsFile,
			Enabled:         true,
			Logger:          log.New(os.Stdout, "[Firestore] ", log.LstdFlags),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("initialize Firestore: %w", err)
		}
		recorder := firestore.NewValidationRecorder(fsClient)
		sinks = append(sinks, feedback.NewFirestoreSink(recorder, 0, nil))
	}

	return feedback.NewMultiSink(sinks...), fsClient, nil
}

// runServer starts the verification API and the metrics endpoint,
// blocking until ctx is cancelled.
func runServer(ctx context.Context, cfg *config.Config, retr retriever.Retriever, verifier *verification.SignatureVerifier, genesisVK entities.GenesisVerificationKey, sink feedback.Sink, logger *log.Logger) {
	handlers := server.NewHandlers(retr, verifier, genesisVK, sink, cfg.MaxWalkSteps, log.New(os.Stdout, "[VerifyAPI] ", log.LstdFlags))
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux)

	apiServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	go func() {
		logger.Printf("Verification API listening on %s", cfg.ListenAddr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("API server error: %v", err)
		}
	}()
	go func() {
		logger.Printf("Metrics listening on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("Metrics server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("API shutdown error: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Metrics shutdown error: %v", err)
	}
}
