// Package console exposes the engine's operations over HTTP for the
// browser UI. The UI is presentation plumbing; everything behind these
// handlers is the engine itself.
package console

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/classroute/routeconsole/internal/backend"
	"github.com/classroute/routeconsole/internal/draft"
	"github.com/classroute/routeconsole/internal/history"
	"github.com/classroute/routeconsole/internal/modelcache"
	"github.com/classroute/routeconsole/internal/prefs"
	"github.com/classroute/routeconsole/internal/proposal"
	"github.com/classroute/routeconsole/internal/syncer"
	"github.com/classroute/routeconsole/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// maxDisplayModels bounds how many probed models a single response carries.
const maxDisplayModels = 20

// Handlers holds all handler dependencies.
type Handlers struct {
	Engine     *draft.Engine
	Syncer     *syncer.Controller
	Proposals  *proposal.Manager
	ModelCache *modelcache.Cache
	Backend    backend.Backend
	Prefs      prefs.Store

	// OnIdentityChange propagates a confirmed identity switch to the
	// backend client (request header) before the reload.
	OnIdentityChange func(id string)
}

// ── State ────────────────────────────────────────────────────

type stateResponse struct {
	Identity        string                  `json:"identity"`
	Draft           *models.RoutingConfig   `json:"draft"`
	Authoritative   *models.RoutingConfig   `json:"authoritative"`
	Dirty           bool                    `json:"dirty"`
	Loading         bool                    `json:"loading"`
	Error           string                  `json:"error,omitempty"`
	WorkflowError   string                  `json:"workflow_error,omitempty"`
	Validation      models.Validation       `json:"validation"`
	Proposals       []models.Proposal       `json:"proposals"`
	Registry        []models.RegistryEntry  `json:"registry"`
	Catalog         models.Catalog          `json:"catalog"`
	Mode            proposal.Mode           `json:"mode"`
	ManualPanelOpen bool                    `json:"manual_panel_open"`
}

func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, stateResponse{
		Identity:        h.Engine.Identity(),
		Draft:           h.Engine.Draft(),
		Authoritative:   h.Engine.Authoritative(),
		Dirty:           h.Engine.Dirty(),
		Loading:         h.Syncer.Loading(),
		Error:           h.Syncer.Err(),
		WorkflowError:   h.Proposals.Err(),
		Validation:      h.Syncer.Validation(),
		Proposals:       h.Syncer.Proposals(),
		Registry:        h.Syncer.Registry(),
		Catalog:         h.Engine.Catalog(),
		Mode:            h.Proposals.Mode(),
		ManualPanelOpen: h.Proposals.ManualPanelOpen(),
	})
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Force bool `json:"force"`
	}
	decodeOptional(r, &req)

	if err := h.Syncer.Load(r.Context(), syncer.LoadOptions{ForceReplaceDraft: req.Force}); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.GetState(w, r)
}

// ── Identity ─────────────────────────────────────────────────

func (h *Handlers) ChangeIdentity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID      string `json:"id"`
		Confirm bool   `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// The confirm flag stands in for the user's explicit confirmation
	// prompt; a rejected prompt aborts the whole switch with no side
	// effects.
	err := h.Engine.ChangeIdentity(req.ID, func() bool { return req.Confirm })
	if errors.Is(err, draft.ErrEditsPending) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.OnIdentityChange != nil {
		h.OnIdentityChange(req.ID)
	}
	if err := h.Prefs.Set(prefs.KeyIdentity, req.ID); err != nil {
		log.Warn().Err(err).Msg("Failed to persist identity preference")
	}
	if err := h.Syncer.Load(r.Context(), syncer.LoadOptions{ForceReplaceDraft: true}); err != nil {
		log.Warn().Err(err).Msg("Reload after identity switch failed")
	}
	h.GetState(w, r)
}

// ── Draft Edits ──────────────────────────────────────────────

func (h *Handlers) AddChannel(w http.ResponseWriter, r *http.Request) {
	h.draftEdit(w, r, h.Engine.AddChannel())
}

func (h *Handlers) RemoveChannel(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	h.draftEdit(w, r, h.Engine.RemoveChannel(index))
}

func (h *Handlers) UpdateChannel(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	var patch models.ChannelPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.draftEdit(w, r, h.Engine.UpdateChannel(index, patch))
}

func (h *Handlers) AddRule(w http.ResponseWriter, r *http.Request) {
	h.draftEdit(w, r, h.Engine.AddRule())
}

func (h *Handlers) RemoveRule(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	h.draftEdit(w, r, h.Engine.RemoveRule(index))
}

func (h *Handlers) UpdateRule(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	var patch models.RulePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.draftEdit(w, r, h.Engine.UpdateRule(index, patch))
}

func (h *Handlers) ResetDraft(w http.ResponseWriter, r *http.Request) {
	h.draftEdit(w, r, h.Engine.ResetDraft())
}

func (h *Handlers) draftEdit(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Entering the channel-editing surface triggers model discovery for
	// every distinct configured provider the draft references.
	h.ModelCache.AutoProbe(r.Context(), h.Engine.Draft(), h.Syncer.Registry())
	h.GetState(w, r)
}

// ── Simulation ───────────────────────────────────────────────

func (h *Handlers) Simulate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Task models.TaskContext `json:"task"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	decision, err := h.Backend.Simulate(r.Context(), &models.SimulateRequest{
		Task:  req.Task,
		Draft: h.Engine.Draft(),
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

// ── Proposals ────────────────────────────────────────────────

func (h *Handlers) Propose(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string        `json:"note"`
		Mode proposal.Mode `json:"mode,omitempty"`
	}
	decodeOptional(r, &req)

	if req.Mode != "" {
		h.Proposals.SetMode(req.Mode)
	}
	if req.Note != "" {
		h.Proposals.SetNote(req.Note)
	}

	created, err := h.Proposals.Propose(r.Context())
	if errors.Is(err, proposal.ErrNoDraft) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handlers) ReviewProposal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "proposalId")
	var req struct {
		Approve bool `json:"approve"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Proposals.Review(r.Context(), id, req.Approve); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.GetState(w, r)
}

func (h *Handlers) ToggleProposalDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "proposalId")
	h.Proposals.ToggleDetail(r.Context(), id)
	respondJSON(w, http.StatusOK, map[string]any{
		"expanded": h.Proposals.Expanded(id),
		"detail":   h.Proposals.Detail(id),
	})
}

func (h *Handlers) GetProposalDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "proposalId")
	detail := h.Proposals.Detail(id)
	if detail == nil {
		respondError(w, http.StatusNotFound, "proposal detail not cached: "+id)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handlers) Rollback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Version string `json:"version"`
		Note    string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.Proposals.SetRollbackInput(req.Version, req.Note)
	err := h.Proposals.Rollback(r.Context())
	if errors.Is(err, proposal.ErrBadRollbackTarget) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.GetState(w, r)
}

// ── History ──────────────────────────────────────────────────

type historyEntry struct {
	Version int                    `json:"version"`
	SavedAt string                 `json:"saved_at"`
	SavedBy string                 `json:"saved_by"`
	Source  string                 `json:"source,omitempty"`
	Note    string                 `json:"note,omitempty"`
	Summary *models.HistorySummary `json:"summary"`
	Changes []string               `json:"changes"`
}

// GetHistory returns the retained versions, newest first, each with its
// structural summary and the changes relative to the version before it.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	items := h.Syncer.History()
	entries := make([]historyEntry, 0, len(items))
	for i, item := range items {
		current := history.DeriveSummary(item)
		var previous *models.HistorySummary
		if i+1 < len(items) {
			previous = history.DeriveSummary(items[i+1])
		}
		entries = append(entries, historyEntry{
			Version: item.Version,
			SavedAt: item.SavedAt,
			SavedBy: item.SavedBy,
			Source:  item.Source,
			Note:    item.Note,
			Summary: current,
			Changes: history.DiffSummaries(current, previous),
		})
	}
	respondJSON(w, http.StatusOK, entries)
}

// ── Provider Registry ────────────────────────────────────────

func (h *Handlers) ListProviders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Syncer.Registry())
}

func (h *Handlers) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var entry models.RegistryEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	out, err := h.Syncer.CreateProvider(r.Context(), &entry)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, out)
}

func (h *Handlers) UpdateProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "providerId")
	var entry models.RegistryEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	out, err := h.Syncer.UpdateProvider(r.Context(), id, &entry)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handlers) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "providerId")
	if err := h.Syncer.DeleteProvider(r.Context(), id); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (h *Handlers) GetProviderForm(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "providerId")
	entry, ok := h.Syncer.ProviderForm(provider)
	if !ok {
		respondError(w, http.StatusNotFound, "no configured entry for provider: "+provider)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// ── Model Discovery ──────────────────────────────────────────

func (h *Handlers) GetModels(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	h.ModelCache.Fetch(r.Context(), provider)

	entry := h.ModelCache.Snapshot(provider)
	if entry == nil {
		respondError(w, http.StatusNotFound, "no model data for provider: "+provider)
		return
	}
	if len(entry.Models) > maxDisplayModels {
		entry.Models = entry.Models[:maxDisplayModels]
	}
	respondJSON(w, http.StatusOK, entry)
}

func (h *Handlers) ProbeDraftProviders(w http.ResponseWriter, r *http.Request) {
	h.ModelCache.AutoProbe(r.Context(), h.Engine.Draft(), h.Syncer.Registry())
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "probing"})
}

// ── Preferences ──────────────────────────────────────────────

func (h *Handlers) GetPrefs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		prefs.KeyIdentity:         h.Prefs.Get(prefs.KeyIdentity),
		prefs.KeyManualPanelOpen:  h.Prefs.Get(prefs.KeyManualPanelOpen),
		prefs.KeyHistoryPanelOpen: h.Prefs.Get(prefs.KeyHistoryPanelOpen),
	})
}

func (h *Handlers) SetPref(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.Prefs.Set(req.Key, req.Value); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{req.Key: req.Value})
}

// ── Helpers ──────────────────────────────────────────────────

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid index: "+raw)
		return 0, false
	}
	return index, true
}

// decodeOptional decodes a body that may legitimately be empty.
func decodeOptional(r *http.Request, out any) {
	if r.Body == nil {
		return
	}
	_ = json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
