package apiv1

// Pong is the ping response.
type Pong struct {
	Ping string `json:"ping"`
}

// PostPaymentsParamsAction selects the payments operation.
type PostPaymentsParamsAction string

const (
	PostPaymentsParamsActionWebhook          PostPaymentsParamsAction = "webhook"
	PostPaymentsParamsActionCheckPayment     PostPaymentsParamsAction = "check_payment"
	PostPaymentsParamsActionCreatePreference PostPaymentsParamsAction = "create_preference"
)

// Valid reports whether the action is one the API serves.
func (a PostPaymentsParamsAction) Valid() bool {
	switch a {
	case PostPaymentsParamsActionWebhook, PostPaymentsParamsActionCheckPayment, PostPaymentsParamsActionCreatePreference:
		return true
	}
	return false
}

// PostPaymentsParams defines parameters for PostPayments.
type PostPaymentsParams struct {
	Action PostPaymentsParamsAction `query:"action"`
}

// GetWalletParams defines parameters for GetWallet.
type GetWalletParams struct {
	Offset *int `query:"offset"`
	Limit  *int `query:"limit"`
}

// GetAdminBillingCountersParams defines parameters for GetAdminBillingCounters.
type GetAdminBillingCountersParams struct {
	Reset *bool `query:"reset"`
}
