package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"jsomr2mei/internal/alignment"
	"jsomr2mei/internal/assembler"
	"jsomr2mei/internal/classifier"
	"jsomr2mei/internal/config"
	"jsomr2mei/internal/crawler"
	"jsomr2mei/internal/grammar"
	"jsomr2mei/internal/grouping"
	"jsomr2mei/internal/mei"
	"jsomr2mei/internal/omr"
	"jsomr2mei/internal/storage"
)

// Converter runs the page pipeline: load, validate, annotate, parse names,
// group, align, assemble, merge and encode.
type Converter struct {
	cfg   *config.Config
	table *classifier.Table
	store storage.Store

	// Out receives progress lines.
	Out io.Writer
}

// NewConverter builds a converter. store may be nil, in which case runs
// are not recorded and nothing is skipped as unchanged.
func NewConverter(cfg *config.Config, table *classifier.Table, store storage.Store) *Converter {
	if table == nil {
		table = classifier.Default()
	}
	return &Converter{cfg: cfg, table: table, store: store, Out: os.Stdout}
}

// Input is one page's raw data. Syllables may be nil.
type Input struct {
	Key       string
	Page      []byte
	Syllables []byte
}

type Output struct {
	MEI            []byte
	Result         *assembler.Result
	InputHash      string
	ReferenceWidth float64
	Merged         int
	// Unchanged is set by ConvertJob when the stored run already matches.
	Unchanged bool
}

type pageData struct {
	page  *omr.Page
	text  *omr.SyllableData
	descs []grammar.Descriptor
}

// InputHash fingerprints the page, its syllables, the mapping table and
// every setting that changes the output.
func (c *Converter) InputHash(in Input) string {
	h := xxhash.New()
	h.Write(in.Page)
	h.Write([]byte{0})
	h.Write(in.Syllables)
	fmt.Fprintf(h, "\x00%s|%s|%g|%d|%s|%g|%g|%g|%016x",
		c.cfg.MEI.Version, c.cfg.MEI.Title,
		c.cfg.Grouping.MaxNeumeSpacing, c.cfg.Grouping.MaxGroupSize, c.cfg.Grouping.ReferenceShape,
		c.cfg.Alignment.Window, c.cfg.Merge.WidthMultiplier, c.cfg.Layout.LigatureWidthUnits,
		c.table.Hash())
	return fmt.Sprintf("%016x", h.Sum64())
}

// Convert runs all stages for one page. Any error aborts the page; nothing
// is written.
func (c *Converter) Convert(ctx context.Context, in Input) (*Output, error) {
	out := &Output{InputHash: c.InputHash(in)}

	data, err := c.loadStage(in)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	glyphs := omr.Annotate(data.page.Glyphs)
	data.descs = parseStage(glyphs)

	gres, err := grouping.New(grouping.Options{
		MaxSpacing:     c.cfg.Grouping.MaxNeumeSpacing,
		MaxSize:        c.cfg.Grouping.MaxGroupSize,
		ReferenceShape: c.cfg.Grouping.ReferenceShape,
	}).Group(glyphs, data.descs)
	if err != nil {
		return nil, fmt.Errorf("%s: grouping failed: %w", in.Key, err)
	}
	out.ReferenceWidth = gres.ReferenceWidth
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var al alignment.Alignment
	if data.text != nil {
		al = alignment.Align(gres.Annotated, data.text.SylBoxes, data.text.MedianLineSpacing, alignment.Options{Window: c.cfg.Alignment.Window})
	} else {
		al = alignment.Align(gres.Annotated, nil, 0, alignment.Options{Window: c.cfg.Alignment.Window})
	}

	res, err := assembler.New(c.table, assembler.Options{
		Version:            c.cfg.MEI.Version,
		Title:              c.cfg.MEI.Title,
		Seed:               in.Key + ":" + out.InputHash,
		LigatureWidthUnits: c.cfg.Layout.LigatureWidthUnits,
	}).Assemble(al.Pairs, data.page.Staves)
	if err != nil {
		return nil, fmt.Errorf("%s: assembly failed: %w", in.Key, err)
	}
	out.Merged = res.Merge(c.cfg.Merge.WidthMultiplier)
	out.Result = res
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, w := range res.Warnings {
		log.Printf("⚠️ %s: %s", in.Key, w)
	}

	out.MEI, err = res.Doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Key, err)
	}
	return out, nil
}

func (c *Converter) loadStage(in Input) (*pageData, error) {
	page, err := omr.LoadPage(bytes.NewReader(in.Page))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Key, err)
	}
	if err := page.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", in.Key, err)
	}

	data := &pageData{page: page}
	if len(bytes.TrimSpace(in.Syllables)) > 0 {
		data.text, err = omr.LoadSyllables(bytes.NewReader(in.Syllables))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.Key, err)
		}
	}
	return data, nil
}

// parseStage only needs categories and shapes for grouping; name problems
// are reported by the assembler.
func parseStage(glyphs []omr.Glyph) []grammar.Descriptor {
	descs := make([]grammar.Descriptor, len(glyphs))
	for i, g := range glyphs {
		descs[i], _ = grammar.Parse(g.Name)
	}
	return descs
}

// ConvertJob converts one discovered page and writes outPath. With a store
// configured, a page whose inputs match the recorded run is skipped unless
// force is set, and every conversion is recorded.
func (c *Converter) ConvertJob(ctx context.Context, job crawler.Job, outPath string, force bool) (*Output, error) {
	in, err := readJob(job)
	if err != nil {
		return nil, err
	}

	hash := c.InputHash(in)
	if c.store != nil && !force {
		if prev, err := c.store.GetRun(ctx, job.Key); err == nil && prev.InputHash == hash && prev.OutputPath == outPath {
			if _, err := os.Stat(outPath); err == nil {
				fmt.Fprintf(c.Out, "⏭️  %s unchanged\n", job.Key)
				return &Output{InputHash: hash, Unchanged: true}, nil
			}
		}
	}

	start := time.Now()
	out, err := c.Convert(ctx, in)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(outPath, out.MEI, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	st := out.Result.Stats
	fmt.Fprintf(c.Out, "🎼 %s: %d syllables, %d neumes, %d components in %v\n",
		job.Key, st.Syllables, st.Neumes, st.Components, time.Since(start).Round(time.Millisecond))

	if c.store != nil {
		run := &storage.Run{
			ID:            job.Key,
			PagePath:      job.PagePath,
			SyllablesPath: job.SyllablesPath,
			InputHash:     out.InputHash,
			MEIVersion:    c.cfg.MEI.Version,
			OutputPath:    outPath,
			Stats:         st,
			Warnings:      out.Result.Warnings,
			Zones:         ZoneRecords(out.Result.Doc),
		}
		if err := c.store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
	}
	return out, nil
}

func readJob(job crawler.Job) (Input, error) {
	in := Input{Key: job.Key}
	var err error
	in.Page, err = os.ReadFile(job.PagePath)
	if err != nil {
		return in, err
	}
	if job.SyllablesPath != "" {
		in.Syllables, err = os.ReadFile(job.SyllablesPath)
		if err != nil {
			return in, err
		}
	}
	return in, nil
}

// ZoneRecords lists every zone of doc with the name of the element that
// references it, in document order.
func ZoneRecords(doc *mei.Document) []storage.ZoneRecord {
	var out []storage.ZoneRecord
	doc.Root.Walk(func(el *mei.Element) {
		z, ok := doc.ZoneOf(el)
		if !ok {
			return
		}
		out = append(out, storage.ZoneRecord{
			ZoneID:  z.ID,
			Element: el.Name,
			ULX:     z.ULX,
			ULY:     z.ULY,
			LRX:     z.LRX,
			LRY:     z.LRY,
		})
	})
	return out
}
