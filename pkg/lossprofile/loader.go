// Package lossprofile parses the yearly grid-loss profile table into a
// normalized sequence of per-interval loss factors. The low-voltage ("BT")
// column is the one the cooperative bills against.
package lossprofile

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/coopernico/coopernico/pkg/log"
	"github.com/coopernico/coopernico/pkg/types"
	"github.com/levenlabs/go-lflag"
)

//go:embed perfil_perda_2026.csv
var bundled []byte

// Loader reads the loss-profile resource. By default it reads the bundled
// yearly table; a path flag can point it at a replacement file.
type Loader struct {
	path string
}

// Configured sets up flags for the loader and returns the instance.
func Configured() *Loader {
	l := &Loader{}
	path := lflag.String("loss-profile", "", "path to a loss-profile CSV overriding the bundled table")

	lflag.Do(func() {
		l.path = *path
	})

	return l
}

// Load parses the loss-profile table. The second return is false when the
// resource is absent or unusable; callers then fall back to the zero-loss
// formula. Individual rows that fail to parse are skipped.
func (l *Loader) Load(ctx context.Context) ([]types.LossFactor, bool) {
	var src io.Reader
	if l.path != "" {
		f, err := os.Open(l.path)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to open loss profile", slog.String("path", l.path), slog.Any("error", err))
			return nil, false
		}
		defer f.Close()
		src = f
	} else {
		src = bytes.NewReader(bundled)
	}

	r := csv.NewReader(src)
	header, err := r.Read()
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read loss profile header", slog.Any("error", err))
		return nil, false
	}

	dateIdx, hourIdx, btIdx := -1, -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "data":
			dateIdx = i
		case "hora":
			hourIdx = i
		case "bt":
			btIdx = i
		}
	}
	if dateIdx < 0 || hourIdx < 0 || btIdx < 0 {
		log.Ctx(ctx).WarnContext(ctx, "loss profile is missing required columns", slog.Any("header", header))
		return nil, false
	}

	var factors []types.LossFactor
	var skipped int
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// malformed line, skip it
			skipped++
			continue
		}

		ts, ok := parseRowTime(record[dateIdx], record[hourIdx])
		if !ok {
			skipped++
			continue
		}
		factor, err := strconv.ParseFloat(strings.TrimSpace(record[btIdx]), 64)
		if err != nil {
			skipped++
			continue
		}
		factors = append(factors, types.LossFactor{TS: ts, Factor: factor})
	}

	if skipped > 0 {
		log.Ctx(ctx).WarnContext(ctx, "skipped unparseable loss profile rows", slog.Int("count", skipped))
	}
	if len(factors) == 0 {
		return nil, false
	}

	sort.Slice(factors, func(i, j int) bool {
		return factors[i].TS.Before(factors[j].TS)
	})
	return factors, true
}

// parseRowTime combines the date and hour-label columns into a Lisbon
// timestamp. The source encodes the last interval of a day as hour "24",
// which maps to midnight of the following day.
func parseRowTime(dateCol, hourCol string) (time.Time, bool) {
	dateOnly, _, _ := strings.Cut(strings.TrimSpace(dateCol), " ")
	day, err := time.ParseInLocation("2006-01-02", dateOnly, types.LisbonTZ)
	if err != nil {
		return time.Time{}, false
	}

	label := strings.TrimSpace(hourCol)
	if strings.HasPrefix(label, "24") {
		return day.AddDate(0, 0, 1), true
	}

	hm, err := time.Parse("15:04", label)
	if err != nil {
		return time.Time{}, false
	}
	return day.Add(time.Duration(hm.Hour())*time.Hour + time.Duration(hm.Minute())*time.Minute), true
}
