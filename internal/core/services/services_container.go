package services

import (
	portsrepo "github.com/pixamint/credit_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/pixamint/credit_ledger_app/internal/core/ports/services"
	"github.com/pixamint/credit_ledger_app/internal/platform/config"
	"github.com/pixamint/credit_ledger_app/internal/utils/idgen"
)

// NewServiceContainer creates a new service container with properly
// initialized dependencies.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, idGen *idgen.Generator) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Credit = NewCreditService(repos.CreditRepo, idGen, cfg)
	container.Reporting = NewReportingService(repos.ReportingRepo)

	return container
}
