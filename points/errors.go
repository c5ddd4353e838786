package points

import "errors"

// ErrInsufficientPoints is returned by Claim when the user's balance does
// not cover the cost. Callers treat it as a rejected claim, not a failure.
var ErrInsufficientPoints = errors.New("insufficient points for claim")
