// Package calibrate fits the warn/block score thresholds to a labeled
// dataset by exhaustive grid search, minimizing expected misclassification
// cost under a configurable cost model.
package calibrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the validation taxonomy. Input-shape problems wrap
// ErrInvalidDataset; content-dependent impossibilities wrap
// ErrImpossiblePrior.
var (
	ErrInvalidDataset  = errors.New("invalid dataset")
	ErrImpossiblePrior = errors.New("malicious prior unsatisfiable")
)

// Row is one labeled dataset entry. Weights are strictly positive;
// reweighting produces a new row slice, never in-place mutation.
type Row struct {
	Identifier string   `json:"identifier"`
	Malicious  bool     `json:"malicious"`
	Weight     float64  `json:"weight"`
	Protect    []string `json:"protect,omitempty"`
}

// rawRow accepts every documented spelling of the dataset row shape:
// {identifier, label|malicious|attack, target|protect?, weight?}.
type rawRow struct {
	Identifier string   `json:"identifier"`
	Label      string   `json:"label"`
	Malicious  *bool    `json:"malicious"`
	Attack     *bool    `json:"attack"`
	Target     string   `json:"target"`
	Protect    []string `json:"protect"`
	Weight     *float64 `json:"weight"`
}

// ParseDataset decodes and validates a labeled dataset. The top level must
// be a non-empty JSON array; every row needs an identifier and a label.
// Errors report the offending row and field; no partial results.
func ParseDataset(data []byte) ([]Row, error) {
	var raws []rawRow
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: top level must be a JSON array of rows: %v", ErrInvalidDataset, err)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: dataset is empty", ErrInvalidDataset)
	}

	rows := make([]Row, 0, len(raws))
	for i, r := range raws {
		row, err := r.validate()
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidDataset, i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r rawRow) validate() (Row, error) {
	if strings.TrimSpace(r.Identifier) == "" {
		return Row{}, errors.New(`missing required field "identifier"`)
	}

	malicious, err := r.label()
	if err != nil {
		return Row{}, err
	}

	weight := 1.0
	if r.Weight != nil {
		if *r.Weight <= 0 {
			return Row{}, fmt.Errorf(`field "weight" must be > 0, got %v`, *r.Weight)
		}
		weight = *r.Weight
	}

	protect := r.Protect
	if len(protect) == 0 && r.Target != "" {
		protect = []string{r.Target}
	}

	return Row{
		Identifier: r.Identifier,
		Malicious:  malicious,
		Weight:     weight,
		Protect:    protect,
	}, nil
}

func (r rawRow) label() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(r.Label)) {
	case "malicious", "attack", "bad":
		return true, nil
	case "benign", "legit", "safe", "good":
		return false, nil
	case "":
		// fall through to the boolean spellings
	default:
		return false, fmt.Errorf(`field "label" has unknown value %q`, r.Label)
	}
	if r.Malicious != nil {
		return *r.Malicious, nil
	}
	if r.Attack != nil {
		return *r.Attack, nil
	}
	return false, errors.New(`missing label: set "label", "malicious" or "attack"`)
}

// Reweight returns a new row set whose weighted malicious fraction equals
// prior. Fails when the dataset lacks a class the requested prior requires.
func Reweight(rows []Row, prior float64) ([]Row, error) {
	if prior <= 0 || prior >= 1 {
		return nil, fmt.Errorf("%w: prior must be in (0,1), got %v", ErrImpossiblePrior, prior)
	}
	var malW, benW float64
	for _, r := range rows {
		if r.Malicious {
			malW += r.Weight
		} else {
			benW += r.Weight
		}
	}
	if malW == 0 {
		return nil, fmt.Errorf("%w: dataset has no malicious rows", ErrImpossiblePrior)
	}
	if benW == 0 {
		return nil, fmt.Errorf("%w: dataset has no benign rows", ErrImpossiblePrior)
	}

	total := malW + benW
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r
		if r.Malicious {
			out[i].Weight = r.Weight * prior * total / malW
		} else {
			out[i].Weight = r.Weight * (1 - prior) * total / benW
		}
	}
	return out, nil
}
