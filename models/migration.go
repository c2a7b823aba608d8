package models

import (
	"log"

	"bitbucket.org/saluddigitalcl/farmacia_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{},
		&StockBalance{}, &MinMaxRule{},
		&Movement{},
		&CatalogProduct{},
		&CenabastToken{},
		&SchedulerTask{}, &TaskExecutionLog{},
		&AuditEntry{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
