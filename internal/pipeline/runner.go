// Package pipeline orchestrates one generation run: fetch the document,
// preprocess each page frame, download assets, synthesize source and emit
// everything into an artifact store.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"figmagen/internal/artifact"
	"figmagen/internal/assets"
	"figmagen/internal/figma"
	"figmagen/internal/preprocess"
	"figmagen/internal/synth"
	"figmagen/internal/types"
)

// Malformed frame policies.
const (
	OnMalformedAbort = "abort"
	OnMalformedSkip  = "skip"
)

// FileNodesPath holds the raw document as fetched.
const FileNodesPath = "file_nodes.json"

// renderBatch bounds the ids sent in one render request.
const renderBatch = 100

type Options struct {
	RunID         string
	RenderVectors bool
	RenderFormat  string
	OnMalformed   string
	DumpNodes     bool
}

// Runner wires a document source to an artifact store. Fetcher may be nil,
// in which case no assets are downloaded.
type Runner struct {
	Source  figma.DocumentSource
	Store   artifact.Store
	Fetcher *assets.Fetcher
	Synth   *synth.Synthesizer
	Opts    Options
}

func New(src figma.DocumentSource, store artifact.Store, fetcher *assets.Fetcher, opts Options) *Runner {
	return &Runner{
		Source:  src,
		Store:   store,
		Fetcher: fetcher,
		Synth:   synth.New(),
		Opts:    opts,
	}
}

type run struct {
	*Runner
	ctx  context.Context
	emit Emitter
	res  *Result
}

// Run executes one full generation and returns its summary. The summary is
// also emitted as manifest.json.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.Source == nil {
		return nil, fmt.Errorf("pipeline: source is nil")
	}
	if r.Store == nil {
		return nil, fmt.Errorf("pipeline: store is nil")
	}
	if r.Synth == nil {
		r.Synth = synth.New()
	}
	runID := r.Opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	x := &run{
		Runner: r,
		ctx:    ctx,
		emit:   EmitterFrom(ctx),
		res: &Result{
			RunID:       runID,
			Pages:       []PageResult{},
			RegistryIDs: []string{},
			Assets:      []AssetEntry{},
			Files:       []string{},
			StartedAt:   time.Now().UTC(),
			Registry:    preprocess.NewRegistry(),
		},
	}
	if err := x.execute(); err != nil {
		x.emit.Emit(Event{Type: EventError, RunID: runID, Message: err.Error()})
		return nil, err
	}
	x.emit.Emit(Event{Type: EventComplete, RunID: runID, Progress: 100, Message: fmt.Sprintf("%d pages", len(x.res.Pages))})
	return x.res, nil
}

func (x *run) execute() error {
	x.progress("fetch", 5, "fetching document")
	file, err := x.Source.File(x.ctx)
	if err != nil {
		return fmt.Errorf("pipeline: fetch document: %w", err)
	}
	x.res.FileName = file.Name
	if err := x.putJSON(FileNodesPath, file); err != nil {
		return err
	}

	canvas, err := file.Canvas()
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	x.res.StartNodeID = canvas.PrototypeStartNodeID

	x.progress("preprocess", 15, fmt.Sprintf("preprocessing %d top-level nodes", len(canvas.Children)))
	pages, err := x.preprocessCanvas(canvas)
	if err != nil {
		return err
	}
	x.res.RegistryIDs = x.res.Registry.IDs()
	log.Printf("pipeline: run=%s pages=%d vectors=%d skipped=%d", x.res.RunID, len(pages), x.res.Registry.Len(), len(x.res.Skipped))

	x.progress("assets", 40, "resolving images")
	imgs, err := x.resolveAssets()
	if err != nil {
		return err
	}

	x.progress("synth", 70, "synthesizing components")
	synthPages := make([]*synth.Page, 0, len(pages))
	for _, page := range pages {
		sp, err := x.Synth.Page(page, imgs, x.res.StartNodeID)
		if err != nil {
			return fmt.Errorf("pipeline: synthesize %s: %w", page.ID, err)
		}
		if x.Opts.DumpNodes {
			if err := x.dumpNodes(sp, page); err != nil {
				return err
			}
		}
		for _, f := range sp.Files {
			if err := x.putFile(f); err != nil {
				return err
			}
		}
		pr := PageResult{NodeID: sp.NodeID, Name: sp.Name, Path: sp.PagePath()}
		for _, c := range sp.Components {
			pr.Components = append(pr.Components, c.Name)
		}
		x.res.Pages = append(x.res.Pages, pr)
		synthPages = append(synthPages, sp)
	}
	if err := x.putFile(x.Synth.Registry(synthPages)); err != nil {
		return err
	}

	x.progress("manifest", 95, "writing manifest")
	x.res.FinishedAt = time.Now().UTC()
	x.res.Files = append(x.res.Files, ManifestPath)
	return x.putJSON(ManifestPath, x.res)
}

// preprocessCanvas simplifies every visible top-level frame with its own
// registry, merged into the run registry in frame order. Other top-level
// nodes are emitted verbatim.
func (x *run) preprocessCanvas(canvas *types.Node) ([]*types.Node, error) {
	var pages []*types.Node
	for _, child := range canvas.Children {
		if child == nil {
			continue
		}
		if child.Type != types.NodeFrame || !child.IsVisible() {
			name := otherNodesName(child)
			if err := x.putJSON(name, child); err != nil {
				return nil, err
			}
			x.res.OtherNodes = append(x.res.OtherNodes, name)
			continue
		}
		reg := preprocess.NewRegistry()
		if err := preprocess.Preprocess(child, reg); err != nil {
			if x.Opts.OnMalformed == OnMalformedSkip && preprocess.IsMalformed(err) {
				log.Printf("pipeline: skipping frame %s (%q): %v", child.ID, child.Name, err)
				x.res.Skipped = append(x.res.Skipped, SkippedFrame{NodeID: child.ID, Name: child.Name, Reason: err.Error()})
				continue
			}
			return nil, fmt.Errorf("pipeline: preprocess frame %s: %w", child.ID, err)
		}
		x.res.Registry.Merge(reg)
		pages = append(pages, child)
	}
	return pages, nil
}

// resolveAssets gathers the image-fill manifest and, when enabled, render
// URLs for every registered vector, then downloads and emits them.
func (x *run) resolveAssets() (assets.Map, error) {
	urls, err := x.Source.ImageFills(x.ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: image fills: %w", err)
	}
	if urls == nil {
		urls = map[string]string{}
	}
	if x.Opts.RenderVectors && x.res.Registry.Len() > 0 {
		ids := x.res.Registry.IDs()
		for start := 0; start < len(ids); start += renderBatch {
			end := min(start+renderBatch, len(ids))
			rendered, err := x.Source.RenderImages(x.ctx, ids[start:end], x.Opts.RenderFormat)
			if err != nil {
				return nil, fmt.Errorf("pipeline: render vectors: %w", err)
			}
			for id, u := range rendered {
				urls[id] = u
			}
		}
	}
	if x.Fetcher == nil || len(urls) == 0 {
		return assets.Map{}, nil
	}
	imgs, err := x.Fetcher.FetchAll(x.ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("pipeline: download assets: %w", err)
	}
	for _, key := range imgs.Keys() {
		a := imgs[key]
		if err := x.put(a.Path(), a.Body); err != nil {
			return nil, err
		}
		x.res.Assets = append(x.res.Assets, AssetEntry{
			Key:         a.Key,
			Path:        a.Path(),
			URL:         a.URL,
			ContentType: a.ContentType,
			Size:        len(a.Body),
		})
	}
	return imgs, nil
}

func (x *run) dumpNodes(sp *synth.Page, page *types.Node) error {
	nodes, err := x.Source.Nodes(x.ctx, page.IDs())
	if err != nil {
		return fmt.Errorf("pipeline: fetch nodes for %s: %w", page.ID, err)
	}
	return x.putJSON(sp.Name+"_nodes.json", map[string]any{"nodes": nodes})
}

// putFile writes f unless it is marked Preserve and a copy already exists.
func (x *run) putFile(f synth.File) error {
	if f.Preserve {
		_, err := x.Store.Get(x.ctx, x.res.RunID, f.Path)
		switch {
		case err == nil:
			x.res.Preserved = append(x.res.Preserved, f.Path)
			return nil
		case !errors.Is(err, artifact.ErrNotFound):
			return fmt.Errorf("pipeline: check %s: %w", f.Path, err)
		}
	}
	return x.put(f.Path, f.Content)
}

func (x *run) putJSON(p string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: encode %s: %w", p, err)
	}
	return x.put(p, b)
}

func (x *run) put(p string, b []byte) error {
	if err := x.Store.Put(x.ctx, x.res.RunID, p, b); err != nil {
		return fmt.Errorf("pipeline: write %s: %w", p, err)
	}
	x.res.Files = append(x.res.Files, p)
	return nil
}

func (x *run) progress(stage string, pct int32, msg string) {
	x.emit.Emit(Event{Type: EventProgress, RunID: x.res.RunID, Stage: stage, Progress: pct, Message: msg})
}

func otherNodesName(n *types.Node) string {
	name := synth.SanitizeName(n.Name)
	if name == "" {
		name = synth.SanitizeName(n.ID)
	}
	return name + "_other_nodes.json"
}
