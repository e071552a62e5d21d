// Package proposal implements the propose/review/rollback workflow layered
// on the draft and the sync controller.
//
// Every local state mutation is gated on the corresponding backend call
// succeeding; a failed call leaves prior state untouched except for the
// error message.
package proposal

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/classroute/routeconsole/internal/backend"
	"github.com/classroute/routeconsole/internal/draft"
	"github.com/classroute/routeconsole/internal/syncer"
	"github.com/classroute/routeconsole/pkg/models"
	"github.com/rs/zerolog/log"
)

// Mode selects the submission workflow.
type Mode string

const (
	// ModeDirectApply creates the proposal and immediately approves it.
	// The proposal is observable as pending between the two calls; that
	// exposure window mirrors the manual-review data shape and is kept as
	// an explicit two-step protocol.
	ModeDirectApply Mode = "direct-apply"
	// ModeManualReview creates the proposal and leaves it pending.
	ModeManualReview Mode = "manual-review"
)

var (
	// ErrNoDraft is returned by Propose before any config has loaded.
	ErrNoDraft = errors.New("no draft to propose")
	// ErrBadRollbackTarget rejects rollback input before any network call.
	ErrBadRollbackTarget = errors.New("rollback target must be a positive integer version")
)

// Manager drives the proposal lifecycle for one console session.
type Manager struct {
	backend backend.Backend
	syncer  *syncer.Controller
	engine  *draft.Engine

	mu              sync.Mutex
	mode            Mode
	note            string
	details         map[string]*models.Proposal
	inflight        map[string]bool
	expanded        map[string]bool
	manualPanelOpen bool
	rollbackTarget  string
	rollbackNote    string
	errText         string
}

// NewManager creates a proposal manager in direct-apply mode.
func NewManager(b backend.Backend, s *syncer.Controller, e *draft.Engine) *Manager {
	return &Manager{
		backend:  b,
		syncer:   s,
		engine:   e,
		mode:     ModeDirectApply,
		details:  make(map[string]*models.Proposal),
		inflight: make(map[string]bool),
		expanded: make(map[string]bool),
	}
}

// ── Propose ──────────────────────────────────────────────────

// Propose submits the current draft as a proposal.
//
// Direct-apply mode creates then immediately approves. A creation failure
// aborts with no review attempted. A review failure after a successful
// creation surfaces the error but does not undo the created proposal; it
// remains pending server-side. Full success clears the note and forces a
// draft-replacing refresh.
//
// Manual-review mode only creates, expands the manual-review panel and
// refreshes without forcing draft replacement.
func (m *Manager) Propose(ctx context.Context) (*models.Proposal, error) {
	candidate := m.engine.Draft()
	if candidate == nil {
		return nil, ErrNoDraft
	}

	m.mu.Lock()
	mode := m.mode
	note := m.note
	m.mu.Unlock()

	created, err := m.backend.CreateProposal(ctx, &models.ProposalRequest{
		Candidate: candidate,
		Note:      note,
	})
	if err != nil {
		m.setErr(err.Error())
		return nil, err
	}

	if mode == ModeManualReview {
		m.mu.Lock()
		m.manualPanelOpen = true
		m.errText = ""
		m.mu.Unlock()

		if err := m.syncer.Load(ctx, syncer.LoadOptions{}); err != nil {
			log.Warn().Err(err).Msg("Overview refresh after propose failed")
		}
		return created, nil
	}

	// Direct-apply: second step of the two-phase protocol.
	if _, err := m.backend.ReviewProposal(ctx, created.ID, true, note); err != nil {
		m.setErr(err.Error())
		return created, err
	}

	m.mu.Lock()
	m.note = ""
	m.errText = ""
	m.mu.Unlock()

	if err := m.syncer.Load(ctx, syncer.LoadOptions{ForceReplaceDraft: true}); err != nil {
		log.Warn().Err(err).Msg("Forced refresh after direct apply failed")
	}
	return created, nil
}

// ── Review ───────────────────────────────────────────────────

// Review approves or rejects a pending proposal. On success the proposal's
// detail panel collapses; approval forces a draft-replacing refresh,
// rejection refreshes without forcing.
func (m *Manager) Review(ctx context.Context, id string, approve bool) error {
	if _, err := m.backend.ReviewProposal(ctx, id, approve, ""); err != nil {
		m.setErr(err.Error())
		return err
	}

	m.mu.Lock()
	m.expanded[id] = false
	m.errText = ""
	m.mu.Unlock()

	if err := m.syncer.Load(ctx, syncer.LoadOptions{ForceReplaceDraft: approve}); err != nil {
		log.Warn().Err(err).Msg("Refresh after review failed")
	}
	return nil
}

// ── Detail Panels ────────────────────────────────────────────

// ToggleDetail expands or collapses a proposal's detail panel. Expanding
// fetches the full detail only when it is not already cached and no fetch
// is in flight; collapsing never evicts the cache, so re-expanding reuses it.
func (m *Manager) ToggleDetail(ctx context.Context, id string) {
	m.mu.Lock()
	if m.expanded[id] {
		m.expanded[id] = false
		m.mu.Unlock()
		return
	}
	m.expanded[id] = true
	if m.details[id] != nil || m.inflight[id] {
		m.mu.Unlock()
		return
	}
	m.inflight[id] = true
	m.mu.Unlock()

	detail, err := m.backend.ProposalDetail(ctx, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, id)
	if err != nil {
		m.errText = err.Error()
		return
	}
	m.details[id] = detail
}

// Detail returns the cached full detail for a proposal, or nil.
func (m *Manager) Detail(id string) *models.Proposal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.details[id]
}

// Expanded reports whether a proposal's detail panel is open.
func (m *Manager) Expanded(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expanded[id]
}

// ── Rollback ─────────────────────────────────────────────────

// Rollback reverts the authoritative config to the version held in the
// rollback input fields. A target that is not a positive integer is
// rejected client-side, before any network call. Success clears the input
// fields and forces a draft-replacing refresh.
func (m *Manager) Rollback(ctx context.Context) error {
	m.mu.Lock()
	target := m.rollbackTarget
	note := m.rollbackNote
	m.mu.Unlock()

	version, err := strconv.Atoi(target)
	if err != nil || version <= 0 {
		m.setErr(ErrBadRollbackTarget.Error())
		return ErrBadRollbackTarget
	}

	if err := m.backend.Rollback(ctx, version, note); err != nil {
		m.setErr(err.Error())
		return err
	}

	m.mu.Lock()
	m.rollbackTarget = ""
	m.rollbackNote = ""
	m.errText = ""
	m.mu.Unlock()

	if err := m.syncer.Load(ctx, syncer.LoadOptions{ForceReplaceDraft: true}); err != nil {
		log.Warn().Err(err).Msg("Forced refresh after rollback failed")
	}
	return nil
}

// ── Session State ────────────────────────────────────────────

// SetMode switches the submission workflow.
func (m *Manager) SetMode(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

// Mode returns the active submission workflow.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// SetNote stores the note attached to the next proposal.
func (m *Manager) SetNote(note string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.note = note
}

// Note returns the pending proposal note.
func (m *Manager) Note() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.note
}

// SetRollbackInput stores the rollback target version and note fields.
func (m *Manager) SetRollbackInput(target, note string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbackTarget = target
	m.rollbackNote = note
}

// RollbackInput returns the rollback input fields.
func (m *Manager) RollbackInput() (target, note string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rollbackTarget, m.rollbackNote
}

// ManualPanelOpen reports whether the manual-review panel is expanded.
func (m *Manager) ManualPanelOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manualPanelOpen
}

// SetManualPanelOpen expands or collapses the manual-review panel.
func (m *Manager) SetManualPanelOpen(open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manualPanelOpen = open
}

// Err returns the last workflow error text, empty when healthy.
func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errText
}

func (m *Manager) setErr(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errText = s
}
