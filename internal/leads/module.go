// Package leads provides the lead intake bounded context module.
// This file wires the intake, assignment, routing and import slices and
// registers their routes.
package leads

import (
	"fmt"

	"crm_backend/internal/events"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/leads/assignment"
	"crm_backend/internal/leads/handler"
	"crm_backend/internal/leads/imports"
	"crm_backend/internal/leads/intake"
	"crm_backend/internal/leads/management"
	"crm_backend/internal/leads/matching"
	"crm_backend/internal/leads/ports"
	"crm_backend/internal/leads/repository"
	"crm_backend/internal/leads/routing"
	"crm_backend/platform/config"
	"crm_backend/platform/lock"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig is the configuration the leads module reads.
type ModuleConfig interface {
	config.LockConfig
	config.RoutingConfig
	config.PhoneConfig
	config.ImportConfig
	GetMinIOMaxFileSize() int64
}

// Dependencies are the collaborators supplied by the composition root.
// Files and Enqueuer may be nil; imports then always run inline.
type Dependencies struct {
	Agents   ports.AgentDirectory
	Locker   lock.Locker
	Files    ports.FileStore
	Enqueuer ports.ImportEnqueuer
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	intake  *intake.Service
	imports *imports.Service
	routing *routing.Service
}

// NewModule creates the leads module. Region buckets are loaded from the file
// named by the routing config.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, deps Dependencies, val *validator.Validator, cfg ModuleConfig, log *logger.Logger) (*Module, error) {
	if deps.Agents == nil || deps.Locker == nil {
		return nil, fmt.Errorf("leads module requires an agent directory and a locker")
	}

	regions, err := assignment.LoadRegions(cfg.GetRoutingRegionsFile())
	if err != nil {
		return nil, fmt.Errorf("load routing regions: %w", err)
	}

	repo := repository.New(pool)
	matcher := matching.New(repo, log)
	factory := intake.NewFactory(repo, matcher, cfg.GetPhoneDefaultRegion())
	selector := assignment.NewSelector(repo, repo, repo, deps.Agents, assignment.Options{
		Regions:           regions,
		AssignableRoles:   cfg.GetAssignableRoles(),
		FallbackAdminRole: cfg.GetFallbackAdminRole(),
		DefaultDepartment: cfg.GetDefaultDepartment(),
	}, log)

	policy := lock.Policy{
		MaxAttempts: cfg.GetLockMaxAttempts(),
		Backoff:     cfg.GetLockBackoff(),
		TTL:         cfg.GetLockTTL(),
	}
	intakeSvc := intake.NewService(matcher, factory, selector, deps.Locker, policy, eventBus, log)

	orchestrator := imports.NewOrchestrator(repo, factory, selector, eventBus, cfg.GetImportPlaceholderEmailDomain(), log)
	importSvc := imports.NewService(orchestrator, repo, deps.Files, deps.Enqueuer, cfg.GetImportInlineMaxRows(), log)

	routingSvc := routing.New(repo, deps.Agents, log)
	mgmtSvc := management.New(repo)

	return &Module{
		handler: handler.New(intakeSvc, mgmtSvc, importSvc, routingSvc, val, cfg.GetMinIOMaxFileSize()),
		intake:  intakeSvc,
		imports: importSvc,
		routing: routingSvc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// IntakeService returns the single-contact intake flow for inbound channels.
func (m *Module) IntakeService() *intake.Service {
	return m.intake
}

// ImportService returns the bulk import service for the worker and CLI.
func (m *Module) ImportService() *imports.Service {
	return m.imports
}

func (m *Module) RoutingService() *routing.Service {
	return m.routing
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/location-routing"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
