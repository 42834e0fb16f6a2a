// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ensemble implements a two-level meta-bandit: a Thompson
// Sampling meta level selects among base bandit algorithms, and the
// chosen base selector picks the arm.
//
// # Description
//
// Each Select issues a Ticket identifying the episode. Update requires
// that ticket, so concurrent select/update pairs can complete out of
// order without rewards ever being routed to the wrong arm. The meta
// level receives the same reward as the base level, keyed by the
// algorithm identifier: it learns which algorithm tends to yield good
// task outcomes, not which algorithm won a direct comparison.
//
// # Thread Safety
//
// Selector is safe for concurrent use.
package ensemble

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianSelect/selection"
	"github.com/AleutianAI/AleutianSelect/selection/bandit"
)

// ErrNoSelection is returned when Update is given a zero-value,
// unknown, or already-consumed ticket. Surfaced explicitly: absorbing
// it would silently corrupt the learned statistics.
var ErrNoSelection = errors.New("ensemble: no selection for ticket")

// DefaultMaxPending bounds the number of unresolved episodes kept for
// reward routing. The oldest episode is evicted first.
const DefaultMaxPending = 1024

// =============================================================================
// Tickets
// =============================================================================

// Ticket identifies one selection episode.
//
// # Description
//
//	Returned by Select and required by Update. Tickets are
//	single-use: the first Update consumes the episode.
type Ticket struct {
	// ID is the episode identifier.
	ID string

	// Algorithm is the base algorithm the meta level chose.
	Algorithm bandit.Algorithm

	// Arm is the arm the base selector chose.
	Arm string
}

// =============================================================================
// Configuration
// =============================================================================

// Config configures an ensemble Selector.
type Config struct {
	// Algorithms lists the base algorithms the meta level selects
	// among. Empty uses every known algorithm.
	Algorithms []bandit.Algorithm

	// Bandit carries the hyperparameters shared by the base
	// selectors (ε, temperature, exploration K, seed, logger). The
	// Algorithm field is ignored; each base selector gets its own.
	Bandit bandit.Config

	// MaxPending bounds unresolved episodes. Zero uses
	// DefaultMaxPending.
	MaxPending int
}

// DefaultConfig returns a config with every algorithm and default
// bandit hyperparameters.
func DefaultConfig() *Config {
	return &Config{
		Algorithms: bandit.Algorithms(),
		Bandit:     *bandit.DefaultConfig(),
	}
}

// =============================================================================
// Selector
// =============================================================================

// Selector is the two-level meta-bandit.
type Selector struct {
	logger *slog.Logger

	base map[bandit.Algorithm]*bandit.Selector
	meta *bandit.Selector

	mu         sync.Mutex
	pending    map[string]Ticket
	order      []string // insertion order for eviction
	maxPending int
}

// New creates an ensemble Selector over the given arm ids.
//
// Inputs:
//
//	cfg - Ensemble configuration. Nil uses DefaultConfig.
//	armIDs - The fixed arm set shared by every base selector.
//
// Outputs:
//
//	*Selector - The ensemble.
//	error - Non-nil for an empty arm set or duplicate arms.
func New(cfg *Config, armIDs []string) (*Selector, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	algorithms := cfg.Algorithms
	if len(algorithms) == 0 {
		algorithms = bandit.Algorithms()
	}
	maxPending := cfg.MaxPending
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	logger := cfg.Bandit.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := make(map[bandit.Algorithm]*bandit.Selector, len(algorithms))
	metaArms := make([]string, 0, len(algorithms))
	for i, alg := range algorithms {
		bcfg := cfg.Bandit
		bcfg.Algorithm = alg
		if bcfg.Seed != 0 {
			// Give each base selector a distinct deterministic stream.
			bcfg.Seed = cfg.Bandit.Seed + int64(i) + 1
		}
		sel, err := bandit.New(&bcfg, armIDs)
		if err != nil {
			return nil, fmt.Errorf("ensemble: base selector %s: %w", alg, err)
		}
		base[alg] = sel
		metaArms = append(metaArms, string(alg))
	}

	// The meta level is always Thompson Sampling over algorithm ids.
	mcfg := cfg.Bandit
	mcfg.Algorithm = bandit.AlgorithmThompson
	meta, err := bandit.New(&mcfg, metaArms)
	if err != nil {
		return nil, fmt.Errorf("ensemble: meta selector: %w", err)
	}

	return &Selector{
		logger:     logger,
		base:       base,
		meta:       meta,
		pending:    make(map[string]Ticket),
		maxPending: maxPending,
	}, nil
}

// Select runs one meta-then-base selection episode.
//
// Outputs:
//
//	Ticket - The episode ticket, required by Update.
//	error - Non-nil if either level fails to select.
func (s *Selector) Select(sctx *selection.SelectionContext) (Ticket, error) {
	algID, err := s.meta.Select(sctx)
	if err != nil {
		return Ticket{}, fmt.Errorf("ensemble: meta select: %w", err)
	}
	alg := bandit.Algorithm(algID)

	armID, err := s.base[alg].Select(sctx)
	if err != nil {
		return Ticket{}, fmt.Errorf("ensemble: base select (%s): %w", alg, err)
	}

	ticket := Ticket{
		ID:        uuid.NewString(),
		Algorithm: alg,
		Arm:       armID,
	}

	s.mu.Lock()
	if len(s.order) >= s.maxPending {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.pending, evicted)
		s.logger.Warn("ensemble: evicting stale episode",
			slog.String("ticket", evicted),
		)
	}
	s.pending[ticket.ID] = ticket
	s.order = append(s.order, ticket.ID)
	s.mu.Unlock()

	return ticket, nil
}

// Update routes one reward to both levels of the episode the ticket
// identifies.
//
// # Description
//
//	The base selector that produced the selection receives the
//	reward for the chosen arm; the meta level receives the same
//	reward keyed by the algorithm identifier. A zero-value, unknown,
//	or already-consumed ticket returns ErrNoSelection and leaves
//	both levels untouched.
func (s *Selector) Update(ticket Ticket, reward float64, sctx *selection.SelectionContext) error {
	s.mu.Lock()
	issued, ok := s.pending[ticket.ID]
	if ok {
		delete(s.pending, ticket.ID)
		for i, id := range s.order {
			if id == ticket.ID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrNoSelection, ticket.ID)
	}

	if err := s.base[issued.Algorithm].Update(issued.Arm, reward, sctx); err != nil {
		return fmt.Errorf("ensemble: base update (%s): %w", issued.Algorithm, err)
	}
	if err := s.meta.Update(string(issued.Algorithm), reward, sctx); err != nil {
		return fmt.Errorf("ensemble: meta update: %w", err)
	}
	return nil
}

// BestArm returns the pure-exploitation choice of the base selector
// the meta level currently rates best.
func (s *Selector) BestArm() (string, error) {
	algID, err := s.meta.BestArm()
	if err != nil {
		return "", err
	}
	return s.base[bandit.Algorithm(algID)].BestArm()
}

// Base returns the base selector for an algorithm, or nil if the
// ensemble was not built with it. Intended for inspection.
func (s *Selector) Base(alg bandit.Algorithm) *bandit.Selector {
	return s.base[alg]
}

// Meta returns the meta-level selector. Intended for inspection.
func (s *Selector) Meta() *bandit.Selector {
	return s.meta
}

// Reset restores both levels to their priors and drops all pending
// episodes.
func (s *Selector) Reset() {
	s.mu.Lock()
	s.pending = make(map[string]Ticket)
	s.order = nil
	s.mu.Unlock()

	s.meta.Reset()
	for _, sel := range s.base {
		sel.Reset()
	}
}
