// Program catalogenum reads an item catalog (JSON) and emits the C++
// `enum eItems` declaration, optionally recording a lookup index and
// Prometheus textfile metrics for the run.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"catalogenum/internal/blob"
	"catalogenum/internal/catalog"
	"catalogenum/internal/config"
	"catalogenum/internal/index"
	"catalogenum/internal/metrics"
)

const contentType = "text/x-c"

var exitFunc = os.Exit

// ErrStale reports that the stored enum differs from a fresh build.
var ErrStale = errors.New("generated enum is stale")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
	stop()
	exitErr(err)
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(args, getenv)
	if errors.Is(err, flag.ErrHelp) {
		config.Usage(stderr)
		return nil
	}
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	rec := metrics.New()
	err = generate(ctx, cfg, logger, rec, stdout)
	if err == nil {
		rec.Succeeded()
	}
	if werr := rec.WriteTextfile(cfg.MetricsTextfile); werr != nil {
		err = errors.Join(err, werr)
	}
	return err
}

func generate(ctx context.Context, cfg config.Config, logger *slog.Logger, rec *metrics.Recorder, stdout io.Writer) error {
	fail := func(stage string, err error) error {
		rec.Failed(stage)
		logger.Debug("run failed", "stage", stage, "err", err)
		return err
	}

	g := catalog.New()
	if err := g.Load(cfg.Catalog); err != nil {
		return fail(metrics.StageLoad, err)
	}
	text, err := g.BuildEnumText(cfg.Indent)
	if err != nil {
		return fail(metrics.StageBuild, err)
	}
	snap, err := index.NewSnapshot(g)
	if err != nil {
		return fail(metrics.StageBuild, err)
	}
	rec.Observe(snap)
	logger.Info("catalog loaded",
		"source", g.Source(),
		"version", g.Version(),
		"item_count", g.Count(),
		"items", len(snap.Entries),
		"emitted", snap.Emitted(),
	)

	if cfg.Check {
		if err := check(ctx, cfg, text); err != nil {
			return fail(metrics.StageCheck, err)
		}
		logger.Info("enum up to date", "out", cfg.Out)
	} else {
		meta := map[string]string{
			"catalog-version": strconv.Itoa(g.Version()),
			"item-count":      strconv.Itoa(g.Count()),
			"emitted":         strconv.Itoa(snap.Emitted()),
		}
		if err := publish(ctx, cfg, text, meta, stdout, logger); err != nil {
			return fail(metrics.StagePublish, err)
		}
	}

	if cfg.Index.Enabled() {
		if err := replaceIndex(ctx, cfg.Index, snap, logger); err != nil {
			return fail(metrics.StageIndex, err)
		}
	}
	return nil
}

// sink opens the configured blob store and maps cfg.Out to a key in it. With
// the filesystem driver and no explicit root, -out is an ordinary path.
func sink(ctx context.Context, cfg config.Config) (blob.Store, string, error) {
	bcfg := cfg.Blob
	key := cfg.Out
	if (bcfg.Driver == "" || blob.Driver(bcfg.Driver) == blob.DriverFilesystem) && bcfg.FSRoot == "" {
		bcfg.FSRoot = filepath.Dir(key)
		key = filepath.Base(key)
	}
	store, err := blob.Open(ctx, bcfg)
	if err != nil {
		return nil, "", err
	}
	return store, key, nil
}

func publish(ctx context.Context, cfg config.Config, text string, meta map[string]string, stdout io.Writer, logger *slog.Logger) error {
	if cfg.ToStdout() {
		if _, err := io.WriteString(stdout, text); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
		return nil
	}
	store, key, err := sink(ctx, cfg)
	if err != nil {
		return err
	}
	info, err := store.Put(ctx, key, bytes.NewReader([]byte(text)), blob.PutOptions{ContentType: contentType, Metadata: meta})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	logger.Info("enum written", "driver", store.Driver(), "key", info.Key, "size", info.Size, "etag", info.ETag)
	return nil
}

func check(ctx context.Context, cfg config.Config, text string) error {
	if cfg.ToStdout() {
		return errors.New("-check needs -out to name the stored enum")
	}
	store, key, err := sink(ctx, cfg)
	if err != nil {
		return err
	}
	_, rc, err := store.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return fmt.Errorf("%w: %s does not exist", ErrStale, cfg.Out)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	stored, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if string(stored) != text {
		return fmt.Errorf("%w: %s differs from %s", ErrStale, cfg.Out, cfg.Catalog)
	}
	return nil
}

func replaceIndex(ctx context.Context, cfg index.Config, snap index.Snapshot, logger *slog.Logger) (retErr error) {
	store, err := index.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("close index: %w", err)
		}
	}()
	if err := store.Replace(ctx, snap); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	logger.Info("index replaced", "driver", store.Driver(), "entries", len(snap.Entries))
	return nil
}

func exitErr(err error) {
	if err == nil {
		return
	}
	//nolint:forbidigo // generator writes to stderr on failure.
	fmt.Fprintln(os.Stderr, err)
	exitFunc(1)
}
