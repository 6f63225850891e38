// Package requestid generates correlation ids for inbound requests.
package requestid

import "github.com/google/uuid"

func New() string {
	return uuid.NewString()
}
