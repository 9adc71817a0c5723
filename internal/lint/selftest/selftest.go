// Package selftest replays every rule's declared examples through its own
// compiled pattern and correction template. A failing example is a
// configuration defect: the rule cannot be trusted against real files.
package selftest

import (
	"context"
	stderrors "errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/rulelint/internal/lint/autocorrect"
	linterrors "github.com/conduit-lang/rulelint/internal/lint/errors"
	"github.com/conduit-lang/rulelint/internal/lint/matcher"
	"github.com/conduit-lang/rulelint/internal/lint/rule"
)

// Outcome is the self-test result of one rule
type Outcome struct {
	Rule     string
	Examples int   // number of examples checked before the first failure
	Err      error // nil when every example passed
}

// Passed reports whether the rule passed
func (o Outcome) Passed() bool {
	return o.Err == nil
}

// Check runs every example of r and returns the first failure
func Check(r *rule.Rule) error {
	return Verify(r).Err
}

// Verify runs every example of r and reports how far it got
func Verify(r *rule.Rule) Outcome {
	out := Outcome{Rule: r.ID}

	if len(r.CorrectionExamples) > 0 && !r.Correctable() {
		out.Err = &linterrors.RuleSelfTestFailure{
			Code: linterrors.ErrMissingTemplate, Rule: r.ID, Kind: linterrors.KindTemplate,
			Example: r.CorrectionExamples[0].Before,
			Cause:   fmt.Errorf("%d autocorrect examples but no autocorrect_replacement", len(r.CorrectionExamples)),
		}
		return out
	}

	for i, ex := range r.MatchingExamples {
		ok, err := matches(r, ex)
		if err != nil || !ok {
			out.Err = failure(r, linterrors.ErrMatchingExample, linterrors.KindMatching, i, ex, err)
			return out
		}
		out.Examples++
	}

	for i, ex := range r.NonMatchingExamples {
		ok, err := matches(r, ex)
		if err != nil || ok {
			out.Err = failure(r, linterrors.ErrNonMatchingExample, linterrors.KindNonMatching, i, ex, err)
			return out
		}
		out.Examples++
	}

	for i, ex := range r.CorrectionExamples {
		if err := checkCorrection(r, i, ex); err != nil {
			out.Err = err
			return out
		}
		out.Examples++
	}
	return out
}

func matches(r *rule.Rule, example string) (bool, error) {
	if r.Kind == rule.KindPath {
		m, err := matcher.ScanPath(r, example)
		return m != nil, err
	}
	return matcher.Contains(r, "", example)
}

func checkCorrection(r *rule.Rule, i int, ex rule.CorrectionExample) error {
	got, err := autocorrect.Text(r, ex.Before)
	if err != nil {
		return failure(r, linterrors.ErrCorrectionExample, linterrors.KindCorrection, i, ex.Before, err)
	}
	if got != ex.After {
		return &linterrors.RuleSelfTestFailure{
			Code: linterrors.ErrCorrectionExample, Rule: r.ID, Kind: linterrors.KindCorrection,
			Index: i, Example: ex.Before, Expected: ex.After, Actual: got,
		}
	}

	again, err := autocorrect.Correct(r, "", ex.After)
	if err != nil {
		return failure(r, linterrors.ErrNotIdempotent, linterrors.KindIdempotence, i, ex.After, err)
	}
	if again.Content != ex.After {
		return &linterrors.RuleSelfTestFailure{
			Code: linterrors.ErrNotIdempotent, Rule: r.ID, Kind: linterrors.KindIdempotence,
			Index: i, Example: ex.After, Expected: ex.After, Actual: again.Content,
		}
	}

	residual, err := matcher.ScanContent(r, "", ex.After)
	if err != nil {
		return failure(r, linterrors.ErrResidualMatch, linterrors.KindResidual, i, ex.After, err)
	}
	if len(residual) > 0 {
		return &linterrors.RuleSelfTestFailure{
			Code: linterrors.ErrResidualMatch, Rule: r.ID, Kind: linterrors.KindResidual,
			Index: i, Example: ex.After,
			Cause: fmt.Errorf("corrected text still matches at %q", residual[0].Text),
		}
	}
	return nil
}

func failure(r *rule.Rule, code string, kind linterrors.ExampleKind, i int, example string, cause error) error {
	return &linterrors.RuleSelfTestFailure{
		Code: code, Rule: r.ID, Kind: kind, Index: i, Example: example, Cause: cause,
	}
}

// CheckAll self-tests rules concurrently. The first failure cancels the
// remaining work, and the failure of the lowest-indexed rule that ran is
// returned as the single terminal error.
func CheckAll(ctx context.Context, rules []*rule.Rule, parallelism int) error {
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}

	errs := make([]error, len(rules))
	for i, r := range rules {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = Check(r)
			return errs[i]
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil && !stderrors.Is(err, context.Canceled) {
			return err
		}
	}
	return ctx.Err()
}

// VerifyAll self-tests every rule without stopping at the first failure and
// returns one outcome per rule in declaration order.
func VerifyAll(ctx context.Context, rules []*rule.Rule, parallelism int) ([]Outcome, error) {
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}

	outcomes := make([]Outcome, len(rules))
	for i, r := range rules {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = Verify(r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
