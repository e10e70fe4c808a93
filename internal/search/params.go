// Package search implements the batched selection/backup driver (component D):
// the state machine that turns repeated theorems_to_expand /
// expand_and_backup calls into a terminated, possibly-proven search.
package search

import (
	"github.com/go-playground/validator/v10"

	"github.com/sorgfresser/htps-go/internal/errs"
	"github.com/sorgfresser/htps-go/internal/params"
)

// Params enumerates every tunable of the search, named exactly as the
// originating interface names them so a config file's keys are self
// explanatory.
type Params struct {
	Exploration                       float64             `koanf:"exploration" validate:"gte=0"`
	PolicyType                        params.PolicyType   `koanf:"policy_type" validate:"oneof=alpha_zero rpo other"`
	NumExpansions                     int                 `koanf:"num_expansions" validate:"gt=0"`
	SuccExpansions                    int                 `koanf:"succ_expansions" validate:"gt=0"`
	EarlyStopping                     bool                `koanf:"early_stopping"`
	NoCritic                          bool                `koanf:"no_critic"`
	BackupOnce                        bool                `koanf:"backup_once"`
	BackupOneForSolved                bool                `koanf:"backup_one_for_solved"`
	DepthPenalty                      float64             `koanf:"depth_penalty" validate:"gt=0,lte=1"`
	CountThreshold                    int                 `koanf:"count_threshold" validate:"gt=0"`
	TacticPThreshold                  float64             `koanf:"tactic_p_threshold" validate:"gte=0,lte=1"`
	TacticSampleQConditioning         bool                `koanf:"tactic_sample_q_conditioning"`
	OnlyLearnBestTactics              bool                `koanf:"only_learn_best_tactics"`
	TacticInitValue                   float64             `koanf:"tactic_init_value"`
	QValueSolved                      params.QValueSolved `koanf:"q_value_solved" validate:"oneof=one one_over_counts count_over_counts none"`
	PolicyTemperature                 float64             `koanf:"policy_temperature" validate:"gt=0"`
	Metric                            params.Metric       `koanf:"metric" validate:"oneof=time depth size"`
	NodeMask                          params.NodeMask     `koanf:"node_mask" validate:"oneof=no_mask solving proof minimal_proof minimal_proof_solving"`
	EffectSubsamplingRate             float64             `koanf:"effect_subsampling_rate" validate:"gte=0,lte=1"`
	CriticSubsamplingRate             float64             `koanf:"critic_subsampling_rate" validate:"gte=0,lte=1"`
	EarlyStoppingSolvedIfRootNotProven bool               `koanf:"early_stopping_solved_if_root_not_proven"`
	VirtualLoss                       float64             `koanf:"virtual_loss" validate:"gte=0"`
}

// Default returns the parameter set the CLI falls back to when a config
// file supplies none: AlphaZero selection, no critic masking, every
// recorded descent path backed up (neither backup_once nor
// backup_one_for_solved set), and the Time metric.
func Default() Params {
	return Params{
		Exploration:           1.0,
		PolicyType:            params.PolicyAlphaZero,
		NumExpansions:         8,
		SuccExpansions:        32,
		EarlyStopping:         true,
		DepthPenalty:          0.99,
		CountThreshold:        10,
		TacticPThreshold:      0.0,
		TacticInitValue:       0.5,
		QValueSolved:          params.QValueSolvedOne,
		PolicyTemperature:     1.0,
		Metric:                params.MetricTime,
		NodeMask:              params.NodeMaskNone,
		EffectSubsamplingRate: 1.0,
		CriticSubsamplingRate: 1.0,
		VirtualLoss:           1.0,
	}
}

var validate = validator.New()

// Validate runs struct-tag validation and returns an *errs.ValidationError
// describing the first violation, mirroring the error taxonomy every other
// boundary in this module uses.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errs.NewValidation("search params: %s", err.Error())
	}
	return nil
}
