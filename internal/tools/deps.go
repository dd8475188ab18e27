package tools

import (
	"context"
	"net/http"
)

// Dependencies bundles the concrete backends RegisterBuiltins wires into
// each built-in tool. Every field is optional; a nil dependency degrades
// its tool to an error at Execute time rather than at registration, since
// the registry has no notion of a partially-available tool.
type Dependencies struct {
	HTTPClient HTTPDoer
	DB         QueryExecer
	Stripe     PaymentClient
	Coinbase   PaymentClient
	Bank       PaymentClient
	Mailer     Mailer
}

// HTTPDoer is the subset of *http.Client the http_request tool needs.
// Satisfied by *http.Client directly.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// QueryExecer is the subset of a SQL driver the database_query tool needs.
// A *pgxpool.Pool from github.com/jackc/pgx/v5/pgxpool has no QueryRows
// method, so it satisfies it only through a small adapter over its Query
// method; this interface is kept minimal so the tool package doesn't import
// the driver directly.
type QueryExecer interface {
	QueryRows(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
}

// PaymentClient abstracts a payment-provider SDK (Stripe, Coinbase, a bank
// rail) behind the charge/refund shape every payment tool needs.
type PaymentClient interface {
	Charge(ctx context.Context, amountCents int64, currency, reference string) (providerRef string, err error)
	Refund(ctx context.Context, providerRef string) error
}

// Mailer abstracts an SMTP or transactional-email send.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
