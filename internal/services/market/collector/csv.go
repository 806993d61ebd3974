package collector

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/sbl/internal/domain"
)

var csvDateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// CSVKlineProvider reads candles from <dir>/<SYMBOL>.csv with columns
// date,open,high,low,close,volume. The header row is optional.
type CSVKlineProvider struct {
	dir string
}

// NewCSVKlineProvider creates a provider over dir.
func NewCSVKlineProvider(dir string) *CSVKlineProvider {
	return &CSVKlineProvider{dir: dir}
}

// GetKlines returns the last limit rows of the symbol's file. The interval is whatever the file holds.
func (p *CSVKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, _ string, limit int) ([]domain.MarketCandle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(p.dir, pair.String()+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrUnknownSymbol, "csv: %s", path)
		}
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	candles, err := readCSVCandles(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	if len(candles) == 0 {
		return nil, errors.Wrapf(ErrNoData, "csv: %s", path)
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	return candles, nil
}

func readCSVCandles(r io.Reader) ([]domain.MarketCandle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 6
	reader.TrimLeadingSpace = true

	var candles []domain.MarketCandle
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(record[0], "date") {
			continue
		}

		openTime, err := parseCSVDate(record[0])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		candle, err := parseCandle(record[1], record[2], record[3], record[4], record[5])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		candle.OpenTime = openTime
		candle.CloseTime = openTime

		candles = append(candles, candle)
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})

	return candles, nil
}

// parseCSVDate accepts ISO dates, RFC3339 timestamps and unix milliseconds.
func parseCSVDate(s string) (time.Time, error) {
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}

	return time.Time{}, errors.Errorf("unrecognized date %q", s)
}
