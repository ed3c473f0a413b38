/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cards

import "errors"

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrNoCardContent    = errors.New("no usable card content found")
	ErrUnknownKind      = errors.New("unknown game kind")
)
