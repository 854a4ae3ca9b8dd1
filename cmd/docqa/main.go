package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/alan-mat/docqa/internal/config"
	"github.com/alan-mat/docqa/internal/tasks"
	"github.com/alan-mat/docqa/server"
	"github.com/alan-mat/docqa/worker"

	_ "github.com/alan-mat/docqa/internal/provider/cohere"
	_ "github.com/alan-mat/docqa/internal/provider/gemini"
	_ "github.com/alan-mat/docqa/internal/provider/jina"
	_ "github.com/alan-mat/docqa/internal/provider/ollama"
	_ "github.com/alan-mat/docqa/internal/provider/openai"
)

const (
	ProgramName   = "docqa"
	Version       = "v0.1.0"
	RepositoryUrl = "github.com/alan-mat/docqa"
)

type serveCmd struct{}

type workerCmd struct{}

type indexCmd struct {
	Path  string `arg:"positional,required" help:"path of the ZIP archive to index"`
	JobID string `arg:"--job-id" help:"job id to report progress under"`
}

type askCmd struct {
	Num       int      `arg:"--num,-n" default:"3" help:"number of key points to answer"`
	KeyPoints []string `arg:"positional,required" help:"key point questions"`
}

type args struct {
	Config string `arg:"--config,-c" default:"config.yaml" help:"path of the YAML config file"`

	Serve  *serveCmd  `arg:"subcommand:serve" help:"start the HTTP server"`
	Worker *workerCmd `arg:"subcommand:work" help:"start the indexing worker"`
	Index  *indexCmd  `arg:"subcommand:index" help:"index a ZIP archive of PDFs from disk"`
	Ask    *askCmd    `arg:"subcommand:ask" help:"answer key points from the indexed documents"`
}

func (args) Version() string {
	return fmt.Sprintf("%s %s", ProgramName, Version)
}

func (args) Epilogue() string {
	return fmt.Sprintf("For more information visit %s", RepositoryUrl)
}

func main() {
	var args args

	p, err := arg.NewParser(arg.Config{Program: ProgramName}, &args)
	if err != nil {
		log.Fatalf("there was an error in the definition of the Go struct: %v", err)
	}
	p.MustParse(os.Args[1:])

	if p.Subcommand() == nil {
		p.WriteUsage(os.Stdout)
		os.Exit(0)
	}

	conf, err := config.Load(args.Config)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	setupLogger(conf)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd := p.Subcommand().(type) {
	case *serveCmd:
		err = startServer(ctx, conf)
	case *workerCmd:
		err = startWorker(ctx, conf)
	case *indexCmd:
		err = indexArchive(ctx, conf, cmd)
	case *askCmd:
		err = askKeyPoints(ctx, conf, cmd)
	default:
		p.FailSubcommand("unrecognized command", p.SubcommandNames()...)
	}

	if err != nil {
		slog.Error("command failed", "command", strings.Join(p.SubcommandNames(), " "), "err", err)
		os.Exit(1)
	}
}

func setupLogger(conf *config.Config) {
	level, _ := conf.LogLevel()
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if conf.Log.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func startServer(ctx context.Context, conf *config.Config) error {
	svc, err := newServices(ctx, conf)
	if err != nil {
		return err
	}
	defer svc.Close()

	answerer, err := svc.answerPipeline(ctx)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithTracker(svc.tracker),
		server.WithAnswerer(answerer),
		server.WithMetrics(svc.metrics),
	}

	indexer := svc.indexingPipeline()
	if conf.Server.Async {
		client := asynq.NewClientFromRedisClient(svc.redis())
		defer client.Close()
		opts = append(opts, server.WithEnqueuer(tasks.NewClient(client)))
	} else {
		opts = append(opts, server.WithIndexer(indexer))
	}

	srv, err := server.New(server.Config{
		ListenHost:       conf.Server.ListenHost,
		ListenPort:       conf.Server.ListenPort,
		Async:            conf.Server.Async,
		ProgressInterval: conf.Server.ProgressInterval,
		MaxUploadSize:    conf.Server.MaxUploadSize,
	}, opts...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		if err := indexer.EnsureCollection(gctx); err != nil {
			slog.Warn("vector collection not ready, will retry on first upload", "err", err)
		}
		return nil
	})
	return g.Wait()
}

func startWorker(ctx context.Context, conf *config.Config) error {
	svc, err := newServices(ctx, conf)
	if err != nil {
		return err
	}
	defer svc.Close()

	if conf.Progress.Backend != config.ProgressBackendRedis {
		slog.Warn("worker progress is only visible to the server with the redis progress backend")
	}

	w := worker.New(worker.Config{
		Concurrency: conf.Worker.Concurrency,
	}, svc.redis(), tasks.NewIndexArchiveHandler(svc.indexingPipeline()))
	return w.Run(ctx)
}

func indexArchive(ctx context.Context, conf *config.Config, cmd *indexCmd) error {
	data, err := os.ReadFile(cmd.Path)
	if err != nil {
		return err
	}

	svc, err := newServices(ctx, conf)
	if err != nil {
		return err
	}
	defer svc.Close()

	jobID := cmd.JobID
	if jobID == "" {
		jobID = newJobID()
	}

	res, err := svc.indexingPipeline().IndexArchive(ctx, jobID, data)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func askKeyPoints(ctx context.Context, conf *config.Config, cmd *askCmd) error {
	svc, err := newServices(ctx, conf)
	if err != nil {
		return err
	}
	defer svc.Close()

	pipeline, err := svc.answerPipeline(ctx)
	if err != nil {
		return err
	}

	answers, err := pipeline.Answer(ctx, cmd.KeyPoints, cmd.Num)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"answers": answers})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
