package importer

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-service/internal/events"
	"catalog-service/internal/models"
	"catalog-service/internal/progress"
)

// DefaultProgressEvery is the row cadence for progress events. Emitting on
// every row would flood the stream on large files.
const DefaultProgressEvery = 10

// CatalogStore is the slice of the persistent catalog the import pipeline
// needs. The repository implements it; tests substitute a mock.
type CatalogStore interface {
	// EnsureCategory returns the category with the given name, creating it
	// when absent.
	EnsureCategory(ctx context.Context, name string) (*models.Category, error)
	// ProductByExternalCode returns (nil, nil) when no product matches.
	ProductByExternalCode(ctx context.Context, code string) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	// UpdateImportedProduct overwrites price and stock; measurement is only
	// written when non-nil (unit→weight upgrades, never the reverse).
	UpdateImportedProduct(ctx context.Context, id uuid.UUID, price, stock float64, measurement *models.MeasurementType) error
}

// Emitter is where the runner reports progress. The progress registry
// implements it; emitting with no listener attached is a no-op there.
type Emitter interface {
	Emit(sessionID string, event progress.Event)
}

// Result is the final accounting of one import job, immutable once the
// terminal event has been emitted.
type Result struct {
	Imported int
	Errors   []string
}

// Runner drives one import job: decode, normalize, upsert, report. It runs
// in a background goroutine that outlives the submission request and reports
// through the registry only.
type Runner struct {
	store            CatalogStore
	emitter          Emitter
	normalizer       *Normalizer
	publisher        *events.Publisher
	logger           *logrus.Entry
	fallbackCategory string
	progressEvery    int
}

// NewRunner wires a Runner. publisher may be nil when eventing is not
// configured.
func NewRunner(store CatalogStore, emitter Emitter, normalizer *Normalizer, publisher *events.Publisher, logger *logrus.Logger, fallbackCategory string, progressEvery int) *Runner {
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}
	if fallbackCategory == "" {
		fallbackCategory = "OTROS"
	}
	return &Runner{
		store:            store,
		emitter:          emitter,
		normalizer:       normalizer,
		publisher:        publisher,
		logger:           logger.WithField("component", "import-runner"),
		fallbackCategory: fallbackCategory,
		progressEvery:    progressEvery,
	}
}

// Run executes the whole job for the uploaded file at path. The transient
// file is deleted exactly once no matter how the job exits. Per-row problems
// accumulate in the result; only failures before row processing begins
// produce the error terminal.
func (r *Runner) Run(ctx context.Context, sessionID, path string) *Result {
	defer r.removeFile(path)

	log := r.logger.WithField("session_id", sessionID)
	log.Info("import job started")

	f, err := os.Open(path)
	if err != nil {
		return r.fail(sessionID, log, fmt.Errorf("open upload: %w", err))
	}
	rows, err := Decode(f)
	f.Close()
	if err != nil {
		return r.fail(sessionID, log, err)
	}

	total := len(rows)
	r.emitter.Emit(sessionID, progress.Progress(
		fmt.Sprintf("File read successfully. Processing %d rows...", total),
		total, 0, 0, 0,
	))

	// The fallback category is resolved once, before the first row, and
	// reused for every create in this job.
	fallback, err := r.store.EnsureCategory(ctx, r.fallbackCategory)
	if err != nil {
		return r.fail(sessionID, log, fmt.Errorf("ensure fallback category: %w", err))
	}

	result := &Result{Errors: make([]string, 0)}
	for i, row := range rows {
		change, err := r.normalizer.Normalize(row)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else if err := r.apply(ctx, fallback.ID, change); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row.Index, err))
		} else {
			result.Imported++
		}

		processed := i + 1
		if processed%r.progressEvery == 0 || processed == total {
			r.emitter.Emit(sessionID, progress.Progress(
				fmt.Sprintf("Processing product %d of %d...", processed, total),
				total, processed, result.Imported, len(result.Errors),
			))
		}
	}

	message := fmt.Sprintf("Import finished. %d products imported, %d errors.", result.Imported, len(result.Errors))
	r.emitter.Emit(sessionID, progress.Complete(message, result.Imported, len(result.Errors)))
	r.publisher.PublishImportCompleted(sessionID, result.Imported, len(result.Errors))
	log.WithFields(logrus.Fields{
		"imported": result.Imported,
		"errors":   len(result.Errors),
	}).Info("import job completed")

	return result
}

// apply upserts one accepted change-set. Matching is by external code; a miss
// creates the product under the fallback category.
func (r *Runner) apply(ctx context.Context, fallbackCategoryID uuid.UUID, change *ChangeSet) error {
	existing, err := r.store.ProductByExternalCode(ctx, change.ExternalCode)
	if err != nil {
		return err
	}

	if existing != nil {
		var measurement *models.MeasurementType
		if change.Measurement == models.MeasurementWeight && existing.MeasurementType != models.MeasurementWeight {
			weight := models.MeasurementWeight
			measurement = &weight
		}
		return r.store.UpdateImportedProduct(ctx, existing.ID, change.Price, change.Stock, measurement)
	}

	code := change.ExternalCode
	return r.store.CreateProduct(ctx, &models.Product{
		Name:            change.Name,
		Price:           change.Price,
		Stock:           change.Stock,
		CategoryID:      fallbackCategoryID,
		ExternalCode:    &code,
		MeasurementType: change.Measurement,
	})
}

// fail emits the single error terminal for job-level failures (decode error,
// store unreachable before the first row).
func (r *Runner) fail(sessionID string, log *logrus.Entry, err error) *Result {
	log.WithError(err).Error("import job failed")
	r.emitter.Emit(sessionID, progress.Error(fmt.Sprintf("Import failed: %v", err), 1))
	return &Result{Errors: []string{err.Error()}}
}

func (r *Runner) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.logger.WithError(err).WithField("path", path).Warn("failed to delete temp upload")
	}
}
