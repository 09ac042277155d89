// Package app provides application-level wiring: repositories, lifecycle
// manager, access engine, and services, built from the handles main()
// provides.
package app

import (
	"database/sql"
	"log/slog"

	"rulegate/internal/config"
	"rulegate/internal/db/repository"
	"rulegate/internal/engine"
	"rulegate/internal/lifecycle"
	"rulegate/internal/service/authz"
)

// Deps holds the external dependencies that main() must provide: config,
// database pools, and the logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Services groups the service pointers the API handler needs.
type Services struct {
	Claim *authz.ClaimService
	Rule  *authz.RuleService
	Audit *authz.AuditService
}

// App holds the fully wired application.
type App struct {
	Services   Services
	Access     *engine.Access
	Lifecycle  *lifecycle.Manager
	Reconciler *lifecycle.Reconciler
}

// New wires all repositories, the lifecycle manager, the access engine, and
// the services from the provided deps.
func New(deps Deps) *App {
	// Registry reads go through the read pool; the lifecycle manager owns
	// all registry writes through the write pool.
	claimRepo := repository.NewClaimRepo(deps.ReadDB)
	ruleRepo := repository.NewRuleRepo(deps.ReadDB)
	artifactRepo := repository.NewArtifactRepo(deps.ReadDB)
	auditRepo := repository.NewAuditRepo(deps.WriteDB)

	manager := lifecycle.NewManager(deps.WriteDB, deps.Logger)
	access := engine.NewAccess(deps.ReadDB, deps.WriteDB, artifactRepo, deps.Logger)
	reconciler := lifecycle.NewReconciler(deps.ReadDB, artifactRepo, deps.Logger)

	return &App{
		Services: Services{
			Claim: authz.NewClaimService(manager, claimRepo, auditRepo, deps.Logger),
			Rule:  authz.NewRuleService(manager, ruleRepo, claimRepo, auditRepo, deps.Logger),
			Audit: authz.NewAuditService(auditRepo),
		},
		Access:     access,
		Lifecycle:  manager,
		Reconciler: reconciler,
	}
}
