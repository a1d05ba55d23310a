package repository

import "gorm.io/gorm"

// AutoMigrate creates the ledger tables from the entity definitions. Postgres
// deployments use the goose migrations instead; this serves sqlite.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AccountEntity{},
		&CategoryEntity{},
		&BeneficiaryEntity{},
		&TransactionEntity{},
	)
}
