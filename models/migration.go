package models

import (
	"log"

	"bitbucket.org/showbooker/booking_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Event{}, &TicketSale{},
		&PlatformConfig{},
		&ReconciliationReport{}, &Discrepancy{},
		&AuditLogEntry{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
