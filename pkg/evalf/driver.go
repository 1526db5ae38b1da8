package evalf

import (
	"context"

	"github.com/google/uuid"

	"github.com/numeval/numeval/pkg/expr"
)

// N evaluates e to the requested number of certified decimal digits,
// escalating the working precision until the request is met or the
// maxprec ceiling is reached. digits <= 0 requests the default accuracy.
func (ev *Evaluator) N(ctx context.Context, e expr.Expr, digits int, opts Options) (Result, error) {
	if digits <= 0 {
		digits = DefaultDigits
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	for name, value := range opts.Bindings {
		e = expr.Substitute(e, name, value)
	}
	// Bindings are already applied; the per-pass evaluator must not
	// substitute again.
	passOpts := opts
	passOpts.Bindings = nil

	res := Result{
		RequestedDigits: digits,
		ID:              uuid.New().String(),
	}
	log := ev.log.With().Str("eval_id", res.ID).Str("expr_key", expr.Key(e)).Logger()

	target := DigitsToBits(digits)
	wp := target + initialGuardBits
	if wp > opts.MaxPrec {
		wp = opts.MaxPrec
	}

	var done func(status string)
	if ev.metrics != nil {
		done = ev.metrics.EvaluationStarted("n")
	}

	t := &task{ev: ev, opts: passOpts}
	for {
		res.Attempts++
		out, err := t.eval(ctx, e, wp)
		if err != nil {
			if done != nil {
				done("error")
			}
			return Result{}, err
		}
		if out.Value == nil {
			// Free symbols left: report the partially evaluated form.
			res.Partial = out.Partial
			res.Status = out.Status
			res.WorkingPrec = wp
			if done != nil {
				done(string(res.Status))
			}
			log.Info().Int("attempts", res.Attempts).Msg("partial evaluation, free symbols remain")
			return res, nil
		}

		acc := out.Value.AccurateBits()
		exact := out.Value.Im == nil && out.Value.Re.Exact()
		if acc >= target || exact || out.Status != StatusOK {
			res.Value = out.Value
			res.Status = out.Status
			if acc < target && !exact && res.Status == StatusOK {
				res.Status = StatusDegraded
			}
			res.WorkingPrec = wp
			res.CertifiedDigits = digits
			if !exact {
				res.CertifiedDigits = BitsToDigits(acc)
				if res.CertifiedDigits > digits {
					res.CertifiedDigits = digits
				}
			}
			break
		}
		if wp >= opts.MaxPrec {
			res.Value = out.Value
			res.Status = StatusExhausted
			res.WorkingPrec = wp
			res.CertifiedDigits = BitsToDigits(acc)
			break
		}
		wp *= 2
		if wp > opts.MaxPrec {
			wp = opts.MaxPrec
		}
		if ev.metrics != nil {
			ev.metrics.EscalationPerformed()
		}
		log.Debug().Uint("working_prec", wp).Uint("accurate_bits", acc).
			Msg("escalating working precision")
	}

	if ev.metrics != nil {
		ev.metrics.FinalPrecision(res.WorkingPrec)
	}
	if opts.Strict && res.Status != StatusOK {
		if done != nil {
			done("error")
		}
		required := uint(0)
		if res.Value != nil {
			got := res.Value.AccurateBits()
			if got < target {
				required = res.WorkingPrec + (target - got)
			}
		}
		return Result{}, NewPrecisionExhaustedError(
			"requested accuracy not reached within the precision ceiling", nil).
			WithExpr(e).WithPrecision(target, required)
	}
	if opts.Chop && res.Value != nil {
		chopped := chop(*res.Value)
		res.Value = &chopped
	}
	if done != nil {
		done(string(res.Status))
	}
	log.Info().Str("status", string(res.Status)).Int("attempts", res.Attempts).
		Uint("working_prec", res.WorkingPrec).Int("certified_digits", res.CertifiedDigits).
		Msg("evaluation finished")
	return res, nil
}
