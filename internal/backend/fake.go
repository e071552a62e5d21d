package backend

import (
	"context"
	"sync"

	"github.com/classroute/routeconsole/pkg/models"
)

// Fake is an in-memory Backend for tests. Each call is counted by method
// name; behavior is overridden per method via the *Func fields, with
// zero-value defaults otherwise.
type Fake struct {
	mu    sync.Mutex
	calls map[string]int

	FetchOverviewFunc       func(ctx context.Context) (*models.Overview, error)
	FetchRegistryFunc       func(ctx context.Context) ([]models.RegistryEntry, error)
	SimulateFunc            func(ctx context.Context, req *models.SimulateRequest) (*models.Decision, error)
	CreateProposalFunc      func(ctx context.Context, req *models.ProposalRequest) (*models.Proposal, error)
	ReviewProposalFunc      func(ctx context.Context, id string, approve bool, note string) (*models.Proposal, error)
	ProposalDetailFunc      func(ctx context.Context, id string) (*models.Proposal, error)
	RollbackFunc            func(ctx context.Context, version int, note string) error
	CreateRegistryEntryFunc func(ctx context.Context, entry *models.RegistryEntry) (*models.RegistryEntry, error)
	UpdateRegistryEntryFunc func(ctx context.Context, id string, entry *models.RegistryEntry) (*models.RegistryEntry, error)
	DeleteRegistryEntryFunc func(ctx context.Context, id string) error
	ProbeModelsFunc         func(ctx context.Context, provider string) ([]string, error)
}

// NewFake creates an empty fake backend.
func NewFake() *Fake {
	return &Fake{calls: make(map[string]int)}
}

// Calls returns how many times the named method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Fake) record(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

func (f *Fake) FetchOverview(ctx context.Context) (*models.Overview, error) {
	f.record("FetchOverview")
	if f.FetchOverviewFunc != nil {
		return f.FetchOverviewFunc(ctx)
	}
	return &models.Overview{}, nil
}

func (f *Fake) FetchRegistry(ctx context.Context) ([]models.RegistryEntry, error) {
	f.record("FetchRegistry")
	if f.FetchRegistryFunc != nil {
		return f.FetchRegistryFunc(ctx)
	}
	return nil, nil
}

func (f *Fake) Simulate(ctx context.Context, req *models.SimulateRequest) (*models.Decision, error) {
	f.record("Simulate")
	if f.SimulateFunc != nil {
		return f.SimulateFunc(ctx, req)
	}
	return &models.Decision{}, nil
}

func (f *Fake) CreateProposal(ctx context.Context, req *models.ProposalRequest) (*models.Proposal, error) {
	f.record("CreateProposal")
	if f.CreateProposalFunc != nil {
		return f.CreateProposalFunc(ctx, req)
	}
	return &models.Proposal{ID: "proposal-1", Status: models.ProposalPending, Candidate: req.Candidate}, nil
}

func (f *Fake) ReviewProposal(ctx context.Context, id string, approve bool, note string) (*models.Proposal, error) {
	f.record("ReviewProposal")
	if f.ReviewProposalFunc != nil {
		return f.ReviewProposalFunc(ctx, id, approve, note)
	}
	status := models.ProposalRejected
	if approve {
		status = models.ProposalApproved
	}
	return &models.Proposal{ID: id, Status: status}, nil
}

func (f *Fake) ProposalDetail(ctx context.Context, id string) (*models.Proposal, error) {
	f.record("ProposalDetail")
	if f.ProposalDetailFunc != nil {
		return f.ProposalDetailFunc(ctx, id)
	}
	return &models.Proposal{ID: id, Status: models.ProposalPending}, nil
}

func (f *Fake) Rollback(ctx context.Context, version int, note string) error {
	f.record("Rollback")
	if f.RollbackFunc != nil {
		return f.RollbackFunc(ctx, version, note)
	}
	return nil
}

func (f *Fake) CreateRegistryEntry(ctx context.Context, entry *models.RegistryEntry) (*models.RegistryEntry, error) {
	f.record("CreateRegistryEntry")
	if f.CreateRegistryEntryFunc != nil {
		return f.CreateRegistryEntryFunc(ctx, entry)
	}
	return entry, nil
}

func (f *Fake) UpdateRegistryEntry(ctx context.Context, id string, entry *models.RegistryEntry) (*models.RegistryEntry, error) {
	f.record("UpdateRegistryEntry")
	if f.UpdateRegistryEntryFunc != nil {
		return f.UpdateRegistryEntryFunc(ctx, id, entry)
	}
	return entry, nil
}

func (f *Fake) DeleteRegistryEntry(ctx context.Context, id string) error {
	f.record("DeleteRegistryEntry")
	if f.DeleteRegistryEntryFunc != nil {
		return f.DeleteRegistryEntryFunc(ctx, id)
	}
	return nil
}

func (f *Fake) ProbeModels(ctx context.Context, provider string) ([]string, error) {
	f.record("ProbeModels")
	if f.ProbeModelsFunc != nil {
		return f.ProbeModelsFunc(ctx, provider)
	}
	return nil, nil
}

var _ Backend = (*Fake)(nil)
