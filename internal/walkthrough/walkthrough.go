// Package walkthrough runs the bookstore example queries in order and prints
// a heading and the result of each one.
package walkthrough

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"plp-bookstore/internal/queries"
)

const Footer = "All queries executed. Review printed sections and results above."

var ErrUnknownSection = errors.New("unknown section")

// Auditor records changes made by the walkthrough.
type Auditor interface {
	Log(ctx context.Context, entity, action string, data any) error
}

type Options struct {
	Page     int
	PageSize int
	// Only restricts the run to these section keys.
	Only []string
	// WithInsert enables the optional insert section.
	WithInsert      bool
	ContinueOnError bool
	// Timeout bounds each section. Zero means no per-section timeout.
	Timeout time.Duration
}

type Runner struct {
	Books  *queries.Books
	Audit  Auditor
	Logger *zap.Logger
	RunID  string

	opts Options
	out  *printer
}

func NewRunner(books *queries.Books, out io.Writer, logger *zap.Logger, opts Options) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Page == 0 {
		opts.Page = 2
	}
	if opts.PageSize == 0 {
		opts.PageSize = 5
	}
	return &Runner{
		Books:  books,
		Logger: logger,
		RunID:  uuid.NewString(),
		opts:   opts,
		out:    newPrinter(out),
	}
}

// Plan returns the sections a Run would execute.
func (r *Runner) Plan() ([]Section, error) {
	all := Sections(r.opts.Page, r.opts.PageSize)

	if len(r.opts.Only) > 0 {
		keys := lo.Map(all, func(s Section, _ int) string { return s.Key })
		if unknown := lo.Without(r.opts.Only, keys...); len(unknown) > 0 {
			return nil, fmt.Errorf("%w: %v", ErrUnknownSection, unknown)
		}
		return lo.Filter(all, func(s Section, _ int) bool {
			return lo.Contains(r.opts.Only, s.Key)
		}), nil
	}

	return lo.Filter(all, func(s Section, _ int) bool {
		return !s.Optional || r.opts.WithInsert
	}), nil
}

// Run executes the planned sections one after another. It stops at the first
// failure unless ContinueOnError is set, in which case all failures are
// returned together.
func (r *Runner) Run(ctx context.Context) error {
	sections, err := r.Plan()
	if err != nil {
		return err
	}
	if _, err := queries.Skip(r.opts.Page, r.opts.PageSize); err != nil {
		return err
	}

	log := r.Logger.With(zap.String("run_id", r.RunID))
	log.Info("walkthrough started", zap.Int("sections", len(sections)))

	var errs error
	for _, s := range sections {
		if err := r.runSection(ctx, log, s); err != nil {
			err = fmt.Errorf("%s: %w", s.Key, err)
			if !r.opts.ContinueOnError {
				return err
			}
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		log.Warn("walkthrough finished with errors", zap.Int("failed", len(multierr.Errors(errs))))
		return errs
	}

	r.out.Line("\n%s", Footer)
	log.Info("walkthrough finished")
	return nil
}

func (r *Runner) runSection(ctx context.Context, log *zap.Logger, s Section) error {
	r.out.Heading(s.Heading)

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.Run(ctx, r.Books)
	if err != nil {
		log.Error("section failed", zap.String("section", s.Key), zap.Error(err))
		r.out.Failure(err)
		return err
	}
	log.Debug("section done", zap.String("section", s.Key), zap.Duration("took", time.Since(start)))

	if err := r.out.Result(res); err != nil {
		return err
	}

	if s.Action != "" && r.Audit != nil {
		data := bson.M{"run_id": r.RunID, "section": s.Key, "params": s.Params}
		if err := r.Audit.Log(ctx, s.Entity, s.Action, data); err != nil {
			log.Warn("audit log failed", zap.String("section", s.Key), zap.Error(err))
		}
	}
	return nil
}
