// Package metrics provides Prometheus metrics for the device explorer.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

// Transfer directions.
const (
	DirectionDownload = "download"
	DirectionUpload   = "upload"
)

// Operation outcomes.
const (
	OutcomeBackgrounded = "backgrounded"
	OutcomeCancelled    = "cancelled"
	OutcomePartial      = "partial"
	OutcomeSucceeded    = "succeeded"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devexplorer_operations_total",
			Help: "Total batch operations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devexplorer_operation_duration_seconds",
			Help:    "Batch operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	bytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devexplorer_transferred_bytes_total",
			Help: "Total bytes moved between device and local store",
		},
		[]string{"direction"},
	)

	problemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devexplorer_problems_total",
			Help: "Total per-item failures by category",
		},
		[]string{"category"},
	)

	remoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devexplorer_remote_calls_total",
			Help: "Total device filesystem calls",
		},
		[]string{"op", "status"},
	)

	remoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devexplorer_remote_call_duration_seconds",
			Help:    "Device filesystem call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOperation records a finished batch operation.
func RecordOperation(kind, outcome string, duration time.Duration) {
	operationsTotal.WithLabelValues(kind, outcome).Inc()
	operationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordBytes records transferred bytes.
func RecordBytes(direction string, n int64) {
	if n <= 0 {
		return
	}

	bytesTotal.WithLabelValues(direction).Add(float64(n))
}

// RecordProblem records one per-item failure under its category.
func RecordProblem(err error) {
	problemsTotal.WithLabelValues(string(errors.Classify(err))).Inc()
}

// RecordRemoteCall records one device call.
func RecordRemoteCall(op string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = string(errors.Classify(err))
	}

	remoteCallsTotal.WithLabelValues(op, status).Inc()
	remoteCallDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// InstrumentedRemote counts every call made through it.
type InstrumentedRemote struct {
	next filesystem.RemoteFileSystem
}

// Instrument wraps next.
func Instrument(next filesystem.RemoteFileSystem) *InstrumentedRemote {
	return &InstrumentedRemote{next: next}
}

// ListEntries implements filesystem.RemoteFileSystem.
func (r *InstrumentedRemote) ListEntries(ctx context.Context, dir string) ([]filesystem.FileEntry, error) {
	start := time.Now()
	entries, err := r.next.ListEntries(ctx, dir)
	RecordRemoteCall(filesystem.OpList, err, time.Since(start))

	return entries, err
}

// Download implements filesystem.RemoteFileSystem.
func (r *InstrumentedRemote) Download(
	ctx context.Context, entry filesystem.FileEntry, localPath string, onProgress filesystem.ProgressFunc,
) error {
	start := time.Now()
	err := r.next.Download(ctx, entry, localPath, onProgress)
	RecordRemoteCall(filesystem.OpDownload, err, time.Since(start))

	return err
}

// Upload implements filesystem.RemoteFileSystem.
func (r *InstrumentedRemote) Upload(
	ctx context.Context, localPath, parentPath string, onProgress filesystem.ProgressFunc,
) error {
	start := time.Now()
	err := r.next.Upload(ctx, localPath, parentPath, onProgress)
	RecordRemoteCall(filesystem.OpUpload, err, time.Since(start))

	return err
}

// CreateFile implements filesystem.RemoteFileSystem.
func (r *InstrumentedRemote) CreateFile(ctx context.Context, parentPath, name string) error {
	start := time.Now()
	err := r.next.CreateFile(ctx, parentPath, name)
	RecordRemoteCall(filesystem.OpCreateFile, err, time.Since(start))

	return err
}

// CreateDirectory implements filesystem.RemoteFileSystem.
func (r *InstrumentedRemote) CreateDirectory(ctx context.Context, parentPath, name string) error {
	start := time.Now()
	err := r.next.CreateDirectory(ctx, parentPath, name)
	RecordRemoteCall(filesystem.OpCreateDirectory, err, time.Since(start))

	return err
}

// Delete implements filesystem.RemoteFileSystem.
func (r *InstrumentedRemote) Delete(ctx context.Context, entry filesystem.FileEntry) error {
	start := time.Now()
	err := r.next.Delete(ctx, entry)
	RecordRemoteCall(filesystem.OpDelete, err, time.Since(start))

	return err
}

// IsSymlinkToDirectory implements filesystem.RemoteFileSystem.
func (r *InstrumentedRemote) IsSymlinkToDirectory(ctx context.Context, entry filesystem.FileEntry) (bool, error) {
	start := time.Now()
	isDir, err := r.next.IsSymlinkToDirectory(ctx, entry)
	RecordRemoteCall(filesystem.OpResolveLink, err, time.Since(start))

	return isDir, err
}

var _ filesystem.RemoteFileSystem = (*InstrumentedRemote)(nil)
