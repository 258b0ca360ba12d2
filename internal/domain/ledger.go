package domain

// Ledger is the full persistent store the engine runs on.
type Ledger interface {
	UserRepository
	QuestionRepository
	AnswerRepository
	NotificationRepository
	VoteLedger
	AcceptanceStore
	LedgerAuditor
}
