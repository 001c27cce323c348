package calibrate

import (
	"fmt"
	"math"

	"github.com/paultendo/namespace-guard-sub000/pkg/risk"
)

// DefaultTargetRecall is the minimum weighted share of malicious rows that
// must score at or above the warn threshold, unless overridden.
const DefaultTargetRecall = 0.9

// CostModel prices the four misclassification outcomes. Blocking a benign
// identifier annoys a legitimate user; letting a malicious one through is
// usually far worse, hence the asymmetric defaults.
type CostModel struct {
	BlockBenign    float64 `json:"blockBenign" yaml:"block_benign"`
	WarnBenign     float64 `json:"warnBenign" yaml:"warn_benign"`
	AllowMalicious float64 `json:"allowMalicious" yaml:"allow_malicious"`
	WarnMalicious  float64 `json:"warnMalicious" yaml:"warn_malicious"`
}

// DefaultCostModel returns the stock pricing.
func DefaultCostModel() CostModel {
	return CostModel{
		BlockBenign:    1.0,
		WarnBenign:     0.25,
		AllowMalicious: 5.0,
		WarnMalicious:  1.0,
	}
}

func (c CostModel) validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"block_benign", c.BlockBenign},
		{"warn_benign", c.WarnBenign},
		{"allow_malicious", c.AllowMalicious},
		{"warn_malicious", c.WarnMalicious},
	} {
		if v.val < 0 || math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return fmt.Errorf("cost %s must be a finite non-negative number, got %v", v.name, v.val)
		}
	}
	return nil
}

// Options configures a calibration run.
type Options struct {
	// Costs prices misclassifications. Zero value means DefaultCostModel.
	Costs CostModel

	// TargetRecall constrains the warn threshold. Zero means
	// DefaultTargetRecall. The constraint is dropped, and reported as
	// unmet, when no threshold can satisfy it.
	TargetRecall float64

	// MaliciousPrior, when in (0,1), reweights the dataset so the weighted
	// malicious fraction matches the deployment base rate.
	MaliciousPrior float64

	// Risk supplies scoring options. Rows carrying their own protect list
	// override Risk.Protect for that row only.
	Risk risk.Options
}

// Policy is the calibration result: the chosen thresholds plus the weighted
// confusion summary they produce on the (possibly reweighted) dataset.
type Policy struct {
	WarnThreshold  int     `json:"warnThreshold"`
	BlockThreshold int     `json:"blockThreshold"`
	TotalCost      float64 `json:"totalCost"`
	AverageCost    float64 `json:"averageCost"`

	Recall              float64 `json:"recall"`
	RecallConstraintMet bool    `json:"recallConstraintMet"`

	BlockedBenign    float64 `json:"blockedBenign"`
	WarnedBenign     float64 `json:"warnedBenign"`
	AllowedMalicious float64 `json:"allowedMalicious"`
	WarnedMalicious  float64 `json:"warnedMalicious"`
	BlockedMalicious float64 `json:"blockedMalicious"`

	Rows int `json:"rows"`
}

// Calibrate scores every row once, then searches all warn <= block integer
// threshold pairs in [0,100] for the minimum-cost policy. Because scores are
// compared as score >= threshold and thresholds are integers, rows collapse
// into floor(score) buckets and each candidate pair is evaluated from two
// suffix-sum arrays instead of a rescan.
func Calibrate(rows []Row, opts Options) (Policy, error) {
	if len(rows) == 0 {
		return Policy{}, fmt.Errorf("%w: dataset is empty", ErrInvalidDataset)
	}
	costs := opts.Costs
	if costs == (CostModel{}) {
		costs = DefaultCostModel()
	}
	if err := costs.validate(); err != nil {
		return Policy{}, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	targetRecall := opts.TargetRecall
	if targetRecall == 0 {
		targetRecall = DefaultTargetRecall
	}
	if targetRecall < 0 || targetRecall > 1 {
		return Policy{}, fmt.Errorf("%w: target recall must be in [0,1], got %v", ErrInvalidDataset, targetRecall)
	}

	if opts.MaliciousPrior != 0 {
		reweighted, err := Reweight(rows, opts.MaliciousPrior)
		if err != nil {
			return Policy{}, err
		}
		rows = reweighted
	}

	// Weighted mass per floor(score) bucket, split by class.
	var malBucket, benBucket [101]float64
	var totalMal, totalBen float64
	for _, row := range rows {
		a := assess(row, opts.Risk)
		b := int(math.Floor(a.Score))
		if b < 0 {
			b = 0
		} else if b > 100 {
			b = 100
		}
		if row.Malicious {
			malBucket[b] += row.Weight
			totalMal += row.Weight
		} else {
			benBucket[b] += row.Weight
			totalBen += row.Weight
		}
	}

	// malGE[t] is the weighted malicious mass scoring >= t; same for benGE.
	var malGE, benGE [102]float64
	for t := 100; t >= 0; t-- {
		malGE[t] = malGE[t+1] + malBucket[t]
		benGE[t] = benGE[t+1] + benBucket[t]
	}

	// Largest warn threshold still meeting the recall target. When no
	// threshold can (or the dataset has no malicious mass), the constraint
	// is dropped and the full grid is searched.
	warnLimit, constraintMet := 100, false
	if totalMal > 0 {
		for w := 100; w >= 0; w-- {
			if malGE[w]/totalMal >= targetRecall {
				warnLimit, constraintMet = w, true
				break
			}
		}
	}
	if !constraintMet {
		warnLimit = 100
	}

	totalWeight := totalMal + totalBen
	best := Policy{TotalCost: math.Inf(1)}
	found := false

	for w := 0; w <= warnLimit; w++ {
		for b := w; b <= 100; b++ {
			cost := costs.BlockBenign*benGE[b] +
				costs.WarnBenign*(benGE[w]-benGE[b]) +
				costs.AllowMalicious*(totalMal-malGE[w]) +
				costs.WarnMalicious*(malGE[w]-malGE[b])
			if found && !better(cost, b, w, best) {
				continue
			}
			found = true
			best = Policy{
				WarnThreshold:       w,
				BlockThreshold:      b,
				TotalCost:           cost,
				AverageCost:         cost / totalWeight,
				RecallConstraintMet: constraintMet,
				BlockedBenign:       benGE[b],
				WarnedBenign:        benGE[w] - benGE[b],
				AllowedMalicious:    totalMal - malGE[w],
				WarnedMalicious:     malGE[w] - malGE[b],
				BlockedMalicious:    malGE[b],
				Rows:                len(rows),
			}
			if totalMal > 0 {
				best.Recall = malGE[w] / totalMal
			}
		}
	}
	return best, nil
}

// better reports whether the candidate beats the incumbent under the
// tie-break chain: lower total cost, then higher block, then higher warn.
// Higher thresholds are preferred on cost ties because they block and warn
// on less.
func better(cost float64, block, warn int, best Policy) bool {
	const eps = 1e-12
	switch {
	case cost < best.TotalCost-eps:
		return true
	case cost > best.TotalCost+eps:
		return false
	case block != best.BlockThreshold:
		return block > best.BlockThreshold
	default:
		return warn > best.WarnThreshold
	}
}

func assess(row Row, ropts risk.Options) risk.Assessment {
	if len(row.Protect) > 0 {
		ropts.Protect = row.Protect
	}
	return risk.Check(row.Identifier, ropts)
}
