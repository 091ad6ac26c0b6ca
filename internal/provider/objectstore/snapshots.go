// Package objectstore reads daily order-line CSV snapshots from an
// S3-compatible bucket. Each object is named <prefix>/YYYYMMDD.csv and holds
// one row per product sold that day: product_id,quantity,revenue. The
// snapshot date comes from the object name.
package objectstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/demandcast/internal/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// SnapshotStore lists and parses order-line snapshots.
type SnapshotStore struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewSnapshotStore(cfg Config) (*SnapshotStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("objectstore endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("objectstore credentials must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore bucket must be provided")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create objectstore client: %w", err)
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "order_lines"
	}

	return &SnapshotStore{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// ListSnapshotDates returns the dates of all snapshots in [from, to).
func (s *SnapshotStore) ListSnapshotDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	var dates []time.Time

	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix + "/",
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("objectstore list failed: %w", obj.Err)
		}
		date, err := snapshotDate(obj.Key)
		if err != nil {
			continue // not a snapshot object
		}
		if date.Before(from) || !date.Before(to) {
			continue
		}
		dates = append(dates, date)
	}

	return dates, nil
}

// ReadSnapshot downloads one day's snapshot and returns its order lines per
// product, dated from the object name.
func (s *SnapshotStore) ReadSnapshot(ctx context.Context, date time.Time) (map[int64][]domain.OrderLine, error) {
	key := fmt.Sprintf("%s/%s.csv", s.prefix, date.Format("20060102"))

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("objectstore get %s failed: %w", key, err)
	}
	defer obj.Close()

	reader := csv.NewReader(obj)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header of %s: %w", key, err)
	}

	colMap := make(map[string]int)
	for i, col := range header {
		colMap[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"product_id", "quantity", "revenue"} {
		if _, ok := colMap[required]; !ok {
			return nil, fmt.Errorf("snapshot %s missing column %q", key, required)
		}
	}

	lines := make(map[int64][]domain.OrderLine)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record from %s: %w", key, err)
		}

		productID, err := strconv.ParseInt(strings.TrimSpace(record[colMap["product_id"]]), 10, 64)
		if err != nil {
			continue
		}
		quantity, _ := strconv.Atoi(strings.TrimSpace(record[colMap["quantity"]]))
		revenue, _ := strconv.ParseFloat(strings.TrimSpace(record[colMap["revenue"]]), 64)
		if quantity < 0 {
			continue
		}

		lines[productID] = append(lines[productID], domain.OrderLine{
			Date:     date,
			Quantity: quantity,
			Revenue:  revenue,
		})
	}

	return lines, nil
}

// GetOrderLines implements provider.SalesHistoryProvider directly against
// the bucket. Intended for backfill and offline runs; the Postgres provider
// serves the hot path.
func (s *SnapshotStore) GetOrderLines(ctx context.Context, productID int64, from, to time.Time) ([]domain.OrderLine, error) {
	dates, err := s.ListSnapshotDates(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var lines []domain.OrderLine
	for _, date := range dates {
		daily, err := s.ReadSnapshot(ctx, date)
		if err != nil {
			return nil, err
		}
		lines = append(lines, daily[productID]...)
	}

	return lines, nil
}

// snapshotDate extracts the date from an object key like prefix/20250131.csv.
func snapshotDate(key string) (time.Time, error) {
	base := path.Base(key)
	name := strings.TrimSuffix(base, ".csv")
	if len(name) != 8 {
		return time.Time{}, fmt.Errorf("not a snapshot key: %s", key)
	}
	return time.Parse("20060102", name)
}
