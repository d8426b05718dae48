package models

import "time"

// ProviderMicrosoft is the provider tag stored on OAuth accounts linked
// through Microsoft Entra ID.
const ProviderMicrosoft = "microsoft-entra-id"

// User is a registered user of the service. APIToken authenticates API
// requests made on the user's behalf.
type User struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Email     string    `json:"email"`
	APIToken  string    `json:"-"`
}

// Account is a linked OAuth provider account. Token fields are nullable
// because providers differ in what they return on re-link.
type Account struct {
	ID             string  `json:"id"`
	UserID         string  `json:"userId"`
	Provider       string  `json:"provider"`
	AccessToken    *string `json:"-"`
	RefreshToken   *string `json:"-"`
	ExpiresAt      *int64  `json:"-"` // unix seconds
	EmailAccountID *string `json:"emailAccountId"`
}

// EmailAccount is a mailbox managed by the service.
//
// SubscriptionID and WatchExpiration always change together: both are set
// when a change-notification subscription is created and both are cleared
// when it is torn down. Version guards concurrent read-modify-write updates
// of the watch fields.
type EmailAccount struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	WatchExpiration *time.Time `json:"watchExpirationTime"`
	SubscriptionID  *string    `json:"subscriptionId"`
	Version         int64      `json:"-"`
}

// ExtensionSession is a short-lived session minted for the browser
// extension after it authenticates.
type ExtensionSession struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}
