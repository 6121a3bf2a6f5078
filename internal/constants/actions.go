package constants

// Audit log actions.
const (
	Create      = "CREATE"
	Update      = "UPDATE"
	Delete      = "DELETE"
	Seed        = "SEED"
	CreateIndex = "CREATE_INDEX"
)

const SystemUser = "system"
