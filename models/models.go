package models

// All lists every model managed by AutoMigrate.
func All() []interface{} {
	return []interface{}{&User{}, &CheckIn{}, &XPEvent{}, &Quest{}, &QuestCompletion{}}
}
