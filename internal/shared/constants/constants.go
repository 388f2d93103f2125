package constants

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"

	// Default provider webhook headers; both are configurable.
	HeaderProviderSignature = "X-Razorpay-Signature"
	HeaderProviderEventID   = "X-Razorpay-Event-Id"

	ContentTypeJSON = "application/json"

	ContextKeyUserID    = "user_id"
	ContextKeyRequestID = "request_id"

	// Providers
	ProviderRazorpay = "razorpay"
	ProviderMock     = "mock"

	// Table names
	TableContentEntitlementRules = "content_entitlement_rules"
	TableUserPlans               = "user_plans"
	TablePurchases               = "purchases"
	TableSubscriptions           = "subscriptions"
	TableProviderEvents          = "provider_events"
	TableContentGrants           = "content_grants"
	TablePlanGrants              = "plan_grants"

	ErrMsgInternalServerError = "Internal server error occurred"
	ErrMsgUnauthorized        = "Unauthorized access"
)
