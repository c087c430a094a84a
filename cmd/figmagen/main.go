package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"figmagen/internal/app"
	"figmagen/internal/config"
	"figmagen/internal/pipeline"
	"figmagen/internal/watch"
)

func main() {
	cfg, err := config.Load("figmagen", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()
	src, closeSrc, err := app.NewSource(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeSrc()

	events := make(chan pipeline.Event, 64)
	go func() {
		for ev := range events {
			if ev.Type == pipeline.EventProgress {
				log.Printf("[%3d%%] %s: %s", ev.Progress, ev.Stage, ev.Message)
			}
		}
	}()
	defer close(events)
	ctx = pipeline.WithEmitter(ctx, &pipeline.ChannelEmitter{Ch: events})

	runner, err := app.NewRunner(cfg, src, store)
	if err != nil {
		log.Fatal(err)
	}
	generate := func(ctx context.Context) error {
		res, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		log.Printf("run %s: %d pages, %d vectors, %d assets, %d files", res.RunID, len(res.Pages), len(res.RegistryIDs), len(res.Assets), len(res.Files))
		for _, s := range res.Skipped {
			log.Printf("run %s: skipped %s (%s): %s", res.RunID, s.NodeID, s.Name, s.Reason)
		}
		return nil
	}

	if err := generate(ctx); err != nil {
		if !cfg.Watch && cfg.Schedule == "" {
			log.Fatal(err)
		}
		log.Printf("initial run failed: %v", err)
	}
	if !cfg.Watch && cfg.Schedule == "" {
		return
	}

	trigger := watch.NewTrigger(generate)
	if cfg.Schedule != "" {
		stopSchedule, err := watch.Schedule(ctx, cfg.Schedule, trigger)
		if err != nil {
			log.Fatal(err)
		}
		defer stopSchedule()
	}
	if cfg.Watch {
		if err := watch.NewWatcher(cfg.DocPath, cfg.Debounce, trigger).Run(ctx); err != nil {
			log.Fatal(err)
		}
		return
	}
	<-ctx.Done()
	log.Println("shutting down")
}
