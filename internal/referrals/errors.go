package referrals

import "errors"

var (
	ErrNoDocuments   = errors.New("no referral documents found")
	ErrDatabaseUnset = errors.New("postgres audit backend requires a database")
)
