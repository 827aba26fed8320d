// Package schema defines the relational data model shared by every store.
// Derived columns (miner performance fields, request dates) are computed
// once at write time by pure functions in derive.go and stored immutably.
package schema

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// User is an account holder. Credits is the spendable balance in integer
// credit units; the ledger is the only writer of that column.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID               string    `bun:"id,pk,type:varchar(32)"`
	Email            *string   `bun:"email,unique,type:varchar(255)"`
	GoogleID         *string   `bun:"google_id,unique,type:varchar(36)"`
	EmailConfirmed   bool      `bun:"email_confirmed,notnull,default:true"`
	PasswordHash     *string   `bun:"password_hash,type:varchar(255)"`
	StripeCustomerID *string   `bun:"stripe_customer_id,type:varchar(32)"`
	CreatedAt        time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	Credits          int64     `bun:"credits,notnull"`
}

// APIKey is a bearer credential for programmatic access. The key string
// itself is the primary key; a user may hold several live keys at once.
type APIKey struct {
	bun.BaseModel `bun:"table:api_keys,alias:k"`

	Key       string    `bun:"key,pk,type:varchar(32)"`
	UserID    string    `bun:"user_id,notnull,type:varchar(32)"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// Session is a server-side browser authentication session.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID        string    `bun:"id,pk,type:varchar(255)"`
	UserID    string    `bun:"user_id,notnull,type:varchar(32)"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// CheckoutSession is a pending credit purchase. Its id matches the payment
// provider's session id and doubles as the idempotency key: AppliedAt is
// set exactly once when the confirmation webhook is consumed.
type CheckoutSession struct {
	bun.BaseModel `bun:"table:checkout_sessions,alias:cs"`

	ID        string     `bun:"id,pk,type:varchar(255)"`
	UserID    string     `bun:"user_id,notnull,type:varchar(32)"`
	Credits   int64      `bun:"credits,notnull"`
	CreatedAt time.Time  `bun:"created_at,nullzero,default:current_timestamp"`
	AppliedAt *time.Time `bun:"applied_at"`
}

// Model is a servable inference model. CPT is the price in credits per
// generated token. Counters are maintained by the ingestion process.
type Model struct {
	bun.BaseModel `bun:"table:models,alias:m"`

	ID      string `bun:"id,pk,type:varchar(128)"`
	Miners  int    `bun:"miners,notnull,default:0"`
	Success int    `bun:"success,notnull,default:0"`
	Failure int    `bun:"failure,notnull,default:0"`
	CPT     int64  `bun:"cpt,notnull,default:1"`
	Enabled bool   `bun:"enabled,default:true"`
}

// Validator is a network validator identity, keyed by hotkey.
type Validator struct {
	bun.BaseModel `bun:"table:validators,alias:v"`

	Hotkey   string  `bun:"hotkey,pk,type:varchar(255)"`
	ValiName *string `bun:"vali_name,type:varchar(255)"`
}

// ValidatorRequest is one synthetic probe issued by a validator. Rows are
// immutable after ingestion. Date is derived from Timestamp at write time.
type ValidatorRequest struct {
	bun.BaseModel `bun:"table:validator_requests,alias:vr"`

	RNanoid        string          `bun:"r_nanoid,pk,type:varchar(255)"`
	Block          int64           `bun:"block,notnull"`
	Timestamp      time.Time       `bun:"timestamp,nullzero,default:current_timestamp"`
	SamplingParams json.RawMessage `bun:"sampling_params,type:jsonb"`
	GroundTruth    json.RawMessage `bun:"ground_truth,type:jsonb"`
	Version        int             `bun:"version,notnull"`
	Hotkey         *string         `bun:"hotkey,type:varchar(255)"`
	Date           time.Time       `bun:"date,notnull"`
}

// MinerResponse is one miner's answer to a ValidatorRequest. WPS,
// TimeForAllTokens and Verified are derived from the Stats payload when the
// row is written; they have no independent mutation path.
type MinerResponse struct {
	bun.BaseModel `bun:"table:miner_responses,alias:mr"`

	ID               int64           `bun:"id,pk,autoincrement"`
	RNanoid          string          `bun:"r_nanoid,notnull,type:varchar(255)"`
	Hotkey           string          `bun:"hotkey,notnull,type:varchar(255)"`
	Coldkey          string          `bun:"coldkey,notnull,type:varchar(255)"`
	UID              int             `bun:"uid,notnull"`
	Stats            json.RawMessage `bun:"stats,type:jsonb"`
	WPS              *float64        `bun:"wps"`
	TimeForAllTokens *float64        `bun:"time_for_all_tokens"`
	Verified         bool            `bun:"verified,notnull,default:false"`
}

// OrganicRequest is one user-initiated inference request. CreditsUsed always
// equals the net debit applied to the user's balance for this request.
// Scored and Jaro are populated later by reconciliation.
type OrganicRequest struct {
	bun.BaseModel `bun:"table:organic_requests,alias:o"`

	ID           int64           `bun:"id,pk,autoincrement"`
	PubID        string          `bun:"pub_id,type:varchar(255)"`
	UserID       string          `bun:"user_id,notnull,type:varchar(32)"`
	CreditsUsed  int64           `bun:"credits_used,notnull,default:0"`
	Tokens       int64           `bun:"tokens,notnull,default:0"`
	Request      json.RawMessage `bun:"request,notnull,type:jsonb"`
	Response     *string         `bun:"response,type:text"`
	Model        string          `bun:"model_id,notnull,type:varchar(128)"`
	CreatedAt    time.Time       `bun:"created_at,notnull,nullzero,default:current_timestamp"`
	UID          *int            `bun:"uid"`
	Hotkey       *string         `bun:"hotkey,type:varchar(255)"`
	Coldkey      *string         `bun:"coldkey,type:varchar(255)"`
	MinerAddress *string         `bun:"miner_address,type:varchar(255)"`
	Attempt      *string         `bun:"attempt,type:varchar(255)"`
	Metadata     json.RawMessage `bun:"metadata,type:jsonb"`
	Scored       bool            `bun:"scored,default:false"`
	Jaro         *float64        `bun:"jaro"`
}
