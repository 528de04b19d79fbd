// Package crops filters crop-survey JSON exports by crop name.
package crops

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/sentinel-prep/internal/log"
	"go.uber.org/zap"
)

const OutputPrefix = "Process_"

var ErrNoCropName = errors.New("record has no Cropname")

type Summary struct {
	Processed []string
	Skipped   []string
	Failed    map[string]error
}

type record struct {
	Cropname *string `json:"Cropname"`
}

// FilterDir filters every regular .json file directly under dir, keeping records
// whose Cropname contains crop regardless of case, and writes the result as
// Process_<name> under outDir. A failing file does not stop the others.
func FilterDir(dir, outDir, crop string) (*Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", outDir, err)
	}

	sum := &Summary{Failed: map[string]error{}}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !strings.HasSuffix(e.Name(), ".json") {
			log.Debug("skipping non-JSON file", zap.String("file", path))
			sum.Skipped = append(sum.Skipped, path)
			continue
		}
		kept, total, err := FilterFile(path, filepath.Join(outDir, OutputPrefix+e.Name()), crop)
		if err != nil {
			log.Error("crop filter failed", zap.String("file", path), zap.Error(err))
			sum.Failed[path] = err
			continue
		}
		log.Info("crop records filtered", zap.String("file", path), zap.Int("kept", kept), zap.Int("total", total))
		sum.Processed = append(sum.Processed, path)
	}
	return sum, nil
}

// FilterFile filters one JSON array of records. Records are written back
// unchanged, field order included.
func FilterFile(in, out, crop string) (kept, total int, err error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return 0, 0, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", in, err)
	}

	crop = strings.ToLower(crop)
	filtered := make([]json.RawMessage, 0, len(raw))
	for i, r := range raw {
		var rec record
		if err := json.Unmarshal(r, &rec); err != nil {
			return 0, 0, fmt.Errorf("record %d: %w", i, err)
		}
		if rec.Cropname == nil {
			return 0, 0, fmt.Errorf("record %d: %w", i, ErrNoCropName)
		}
		if strings.Contains(strings.ToLower(*rec.Cropname), crop) {
			filtered = append(filtered, r)
		}
	}

	payload, err := json.MarshalIndent(filtered, "", "  ")
	if err != nil {
		return 0, 0, err
	}
	if err := os.WriteFile(out, payload, 0o644); err != nil {
		return 0, 0, err
	}
	return len(filtered), len(raw), nil
}
