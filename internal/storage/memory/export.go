package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/mechcore/firecontrol/internal/storage/memory/export/v1"
	"github.com/mechcore/firecontrol/pkg/core"
)

var unsafeName = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_")

// exportName is <session name>_<start>.json, plus .gz when compressing.
func (b *Backend) exportName() string {
	name := unsafeName.Replace(b.session.Name)
	if name == "" {
		name = "session"
	}
	name += "_" + b.session.StartTime.Format("20060102_150405") + ".json"
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	return name
}

// exportJSON writes the battle log next to its final name and renames it
// into place, so a reader never sees a partial file. Callers hold b.mu.
func (b *Backend) exportJSON() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(b.cfg.OutputDir, b.exportName())
	tmp := path + ".part"

	doc := v1.Build(&v1.SessionData{
		Session: b.session,
		Units:   b.units,
		Attacks: b.attacks,
		Reports: b.reports,
	})
	if err := writeExport(tmp, doc, b.cfg.CompressOutput); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("move battle log into place: %w", err)
	}

	b.lastExportPath = path
	b.lastExportMetadata = core.UploadMetadata{
		SessionName: b.session.Name,
		Tag:         b.session.Tag,
		Attacks:     len(b.attacks),
	}
	if start := b.session.StartTime; !start.IsZero() && b.endTime.After(start) {
		b.lastExportMetadata.Duration = b.endTime.Sub(start).Seconds()
	}
	return nil
}

func writeExport(path string, doc v1.Export, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create battle log: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(f)
		w = gz
	}
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("encode battle log: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("finish gzip: %w", err)
		}
	}
	return f.Sync()
}
