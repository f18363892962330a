/*
gatekeeper.go - Duplicate-safe timesheet ingestion

PURPOSE:
  Decides whether an uploaded CSV may be loaded and, if so, writes its rows.
  The invariant: a file whose identifier collides with an accepted one is
  never loaded again.

INVARIANT:
  No two accepted identifiers satisfy IsDuplicateIdentifier.

  The predicate is a case-insensitive substring match in both directions,
  which is broader than name equality: "march" blocks "march_v2".

WHAT IT CHECKS:
  1. A file was supplied at all (ErrMissingFile)
  2. The identifier does not collide with an accepted one (pre-check)
  3. Every row decodes (MalformedRowError)
  4. The collision check again, inside the store transaction, so two
     concurrent uploads of one file cannot both be written

SEE ALSO:
  - identifier.go: FileIdentifier, IsDuplicateIdentifier
  - csv.go: Row decoding
  - payroll/store.go: WithTx contract
*/
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/payroll"
)

// Upload is a timesheet file handed over by the transport.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Gatekeeper admits timesheet uploads into a payroll.Store.
type Gatekeeper struct {
	store  payroll.Store
	logger *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewGatekeeper creates a gatekeeper writing to store.
func NewGatekeeper(store payroll.Store, logger *zap.Logger) *Gatekeeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gatekeeper{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Admit loads the upload if its identifier is new. It returns the stored
// record, ErrMissingFile, a *payroll.DuplicateIngestionError or a
// *payroll.MalformedRowError.
func (g *Gatekeeper) Admit(ctx context.Context, up *Upload) (*payroll.IngestionRecord, error) {
	if up == nil || up.Body == nil {
		return nil, payroll.ErrMissingFile
	}
	identifier := FileIdentifier(up.Filename)
	if identifier == "" {
		// A bare ".csv" would otherwise claim the empty identifier forever.
		return nil, payroll.ErrMissingFile
	}

	// Reject known files before reading the body.
	accepted, err := g.store.ListIngestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestions: %w", err)
	}
	for _, rec := range accepted {
		if IsDuplicateIdentifier(identifier, rec.Identifier) {
			g.logger.Info("rejected duplicate upload",
				zap.String("identifier", identifier),
				zap.String("existing", rec.Identifier),
			)
			return nil, &payroll.DuplicateIngestionError{Identifier: identifier, Existing: rec.Identifier}
		}
	}

	rows, err := ParseTimesheet(up.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", up.Filename, err)
	}

	rec := payroll.IngestionRecord{
		ID:         g.newID(),
		Identifier: identifier,
		RowCount:   len(rows),
		CreatedAt:  g.now(),
	}
	for i := range rows {
		rows[i].IngestionID = rec.ID
	}

	err = g.store.WithTx(ctx, func(tx payroll.IngestTx) error {
		ids, err := tx.Identifiers(ctx)
		if err != nil {
			return fmt.Errorf("failed to read identifiers: %w", err)
		}
		if existing, dup := FindDuplicate(identifier, ids); dup {
			return &payroll.DuplicateIngestionError{Identifier: identifier, Existing: existing}
		}
		if err := tx.RecordIngestion(ctx, rec); err != nil {
			if errors.Is(err, payroll.ErrDuplicateIngestion) {
				return &payroll.DuplicateIngestionError{Identifier: identifier, Existing: identifier}
			}
			return err
		}
		return tx.AppendRows(ctx, rows)
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("ingested timesheet",
		zap.String("ingestion_id", rec.ID),
		zap.String("identifier", identifier),
		zap.Int("rows", rec.RowCount),
	)
	return &rec, nil
}
