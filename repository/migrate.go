package repository

import "gorm.io/gorm"

// Migrate runs AutoMigrate for every table in the logical schema
// (spec §6), the same one-call-per-model style the bot uses in
// InitSchema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userModel{},
		&contactModel{},
		&eventModel{},
		&eventParticipantModel{},
		&reminderModel{},
		&taskModel{},
		&aiCostLogModel{},
		&nlpComparisonModel{},
	)
}
