// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthSellerOnly   = "auth.seller_only"

	// Sessions and navigation
	KeySessionNotFound       = "session.not_found"
	KeySessionClosed         = "session.closed"
	KeyNavigationSuppressed  = "navigation.suppressed"
	KeyNavigationInvalid     = "navigation.invalid_transition"
	KeyNavigationUnknownView = "navigation.unknown_view"
	KeyNavigationUnknownTab  = "navigation.unknown_tab"
	KeyConnectivityOffline   = "connectivity.offline"

	// Products
	KeyProductCreated  = "product.created"
	KeyProductNotFound = "product.not_found"

	// Cart
	KeyCartItemNotFound    = "cart.not_found"
	KeyCartInvalidQuantity = "cart.invalid_quantity"
	KeyCartEmpty           = "cart.empty"
	KeyCartCleared         = "cart.cleared"

	// Checkout and orders
	KeyCheckoutSuccess        = "checkout.success"
	KeyCheckoutCodeTimeout    = "checkout.code_timeout"
	KeyCheckoutCodeFailed     = "checkout.code_failed"
	KeyCheckoutInProgress     = "checkout.in_progress"
	KeyCheckoutOrderFailed    = "checkout.order_failed"
	KeyOrderNotFound          = "order.not_found"
	KeyOrderReleased          = "order.released"
	KeyOrderInvalidCode       = "order.invalid_code"
	KeyOrderNotHeld           = "order.not_held"
	KeyOrderHoldNotAuthorized = "order.hold_not_authorized"
	KeyPreferencesSaved       = "preferences.saved"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationPhone    = "validation.invalid_phone"

	// File Upload
	KeyFileUploadFailed = "file.upload_failed"
	KeyFileInvalidType  = "file.invalid_type"
	KeyFileTooLarge     = "file.too_large"
	KeyFileRequired     = "file.required"
)
