package audithook

// Action constants for audit events.
const (
	// Tier actions
	ActionTierCreated = "tier.created"
	ActionTierUpdated = "tier.updated"

	// Subscription actions
	ActionSubscriptionCreated  = "subscription.created"
	ActionSubscriptionRenewed  = "subscription.renewed"
	ActionSubscriptionCanceled = "subscription.canceled"

	// Capability actions
	ActionTokenMinted  = "token.minted"
	ActionTokenRenewed = "token.renewed"
	ActionTokenRevoked = "token.revoked"
	ActionTokenBurned  = "token.burned"

	// Funds actions
	ActionFundsWithdrawn     = "funds.withdrawn"
	ActionWithdrawalReverted = "funds.withdrawal_reverted"

	// Platform actions
	ActionFeeUpdated    = "fee.updated"
	ActionLedgerPaused  = "ledger.paused"
	ActionLedgerResumed = "ledger.unpaused"
	ActionIssuerRotated = "issuer.rotated"

	// Failures
	ActionOperationFailed = "operation.failed"
)

// Resource constants for audit events.
const (
	ResourceTier         = "tier"
	ResourceSubscription = "subscription"
	ResourceToken        = "capability_token"
	ResourceBalance      = "balance"
	ResourcePlatform     = "platform"
)

// Category constants for audit events.
const (
	CategoryCatalogue    = "catalogue"
	CategorySubscription = "subscription"
	CategoryAccess       = "access"
	CategoryPayment      = "payment"
	CategoryAdmin        = "admin"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
