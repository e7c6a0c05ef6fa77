package bulk

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/contact/entity"
	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/utilities"
)

// ContactStore is the write side of the contact store used by reconciliation.
type ContactStore interface {
	Insert(ctx context.Context, c *entity.Contact) (string, error)
	UpdateByID(ctx context.Context, id, ownerID string, f entity.Fields) (int64, error)
}

// Job is one row waiting for reconciliation. Invalid is set for rows that
// failed normalization; they are reported without touching the store.
type Job struct {
	Index   int
	Contact ContactInput
	Invalid error
}

// Reconciler applies jobs to the store, one statement per row.
type Reconciler struct {
	store   ContactStore
	logger  *zap.SugaredLogger
	newID   func() string
	workers int
}

func NewReconciler(store ContactStore, logger *zap.SugaredLogger, workers int, newID func() string) *Reconciler {
	if newID == nil {
		newID = utilities.NewContactID
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Reconciler{store: store, logger: logger, newID: newID, workers: workers}
}

// Reconcile returns one outcome per job, in job order. A failing row never
// stops the batch; once ctx is done the remaining rows are reported aborted.
func (r *Reconciler) Reconcile(ctx context.Context, ownerID string, jobs []Job) []Outcome {
	out := make([]Outcome, len(jobs))
	if r.workers == 1 {
		for i := range jobs {
			out[i] = r.apply(ctx, ownerID, jobs[i])
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, lane := range lanes(jobs) {
		g.Go(func() error {
			for _, i := range lane {
				out[i] = r.apply(ctx, ownerID, jobs[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// lanes groups job positions so that rows targeting the same contact id run
// in input order on one goroutine. Every other row gets a lane of its own.
func lanes(jobs []Job) [][]int {
	var out [][]int
	byID := map[string]int{}
	for i, j := range jobs {
		id := j.Contact.ID
		if j.Invalid != nil || id == "" {
			out = append(out, []int{i})
			continue
		}
		if l, ok := byID[id]; ok {
			out[l] = append(out[l], i)
			continue
		}
		byID[id] = len(out)
		out = append(out, []int{i})
	}
	return out
}

func (r *Reconciler) apply(ctx context.Context, ownerID string, j Job) Outcome {
	o := Outcome{Index: j.Index}
	if j.Invalid != nil {
		o.Status = StatusSkippedInvalid
		o.Reason = j.Invalid.Error()
		return o
	}
	if err := ctx.Err(); err != nil {
		return aborted(o, err)
	}

	c := j.Contact
	if c.ID != "" {
		n, err := r.store.UpdateByID(ctx, c.ID, ownerID, c.Fields)
		if err != nil {
			return r.failed(ctx, o, err)
		}
		o.Status = StatusUpdated
		o.ID = c.ID
		if n == 0 {
			o.Reason = ReasonNoMatch
		}
		return o
	}

	rec := &entity.Contact{
		ID:       r.newID(),
		OwnerID:  ownerID,
		Name:     c.Name,
		Email:    c.Email,
		Phone:    c.Phone,
		Address:  c.Address,
		Timezone: c.Timezone,
	}
	id, err := r.store.Insert(ctx, rec)
	if err != nil {
		return r.failed(ctx, o, err)
	}
	o.Status = StatusInserted
	o.ID = id
	return o
}

func (r *Reconciler) failed(ctx context.Context, o Outcome, err error) Outcome {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return aborted(o, ctxErr)
	}
	r.logger.Warnw("bulk row failed", "row", o.Index, "err", err)
	o.Status = StatusFailed
	o.Reason = err.Error()
	return o
}

func aborted(o Outcome, err error) Outcome {
	o.Status = StatusFailed
	if errors.Is(err, context.DeadlineExceeded) {
		o.Reason = ReasonTimeout
	} else {
		o.Reason = "aborted: " + err.Error()
	}
	return o
}
