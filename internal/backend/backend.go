// Package backend talks JSON-over-HTTP to the authoritative routing service.
// The engine and the tests depend on the Backend interface, making it easy
// to swap the real client for a fake.
package backend

import (
	"context"

	"github.com/classroute/routeconsole/pkg/models"
)

// Backend is the full set of routing-service calls the engine issues.
// All mutating calls are safe to re-issue manually; there are no
// idempotency keys.
type Backend interface {
	// FetchOverview returns the routing config, validation results,
	// version history, pending proposals and the provider catalog.
	FetchOverview(ctx context.Context) (*models.Overview, error)

	// FetchRegistry returns the configured provider registry.
	FetchRegistry(ctx context.Context) ([]models.RegistryEntry, error)

	// Simulate previews a routing decision without mutating anything.
	Simulate(ctx context.Context, req *models.SimulateRequest) (*models.Decision, error)

	// CreateProposal submits a candidate config for review.
	CreateProposal(ctx context.Context, req *models.ProposalRequest) (*models.Proposal, error)

	// ReviewProposal approves or rejects a pending proposal.
	ReviewProposal(ctx context.Context, id string, approve bool, note string) (*models.Proposal, error)

	// ProposalDetail returns a proposal with its full candidate snapshot.
	ProposalDetail(ctx context.Context, id string) (*models.Proposal, error)

	// Rollback reverts the authoritative config to a previous version.
	Rollback(ctx context.Context, version int, note string) error

	// Provider registry CRUD.
	CreateRegistryEntry(ctx context.Context, entry *models.RegistryEntry) (*models.RegistryEntry, error)
	UpdateRegistryEntry(ctx context.Context, id string, entry *models.RegistryEntry) (*models.RegistryEntry, error)
	DeleteRegistryEntry(ctx context.Context, id string) error

	// ProbeModels asks a configured provider for its available models.
	ProbeModels(ctx context.Context, provider string) ([]string, error)
}
