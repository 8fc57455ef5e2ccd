package pgsql

import (
	portsrepo "github.com/pixamint/credit_ledger_app/internal/core/ports/repositories"
)

// NewRepositoryProvider wires all pgsql repositories onto one pool.
func NewRepositoryProvider(pool PgxPool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		CreditRepo:    newPgxCreditRepository(pool),
		ReportingRepo: newReportingRepository(pool),
	}
}
