// Package models defines the data shared by the Krishi Sakhi services.
package models

import "errors"

// Common errors.
var (
	ErrMessageRequired       = errors.New("message is required")
	ErrActivityNotFound      = errors.New("activity not found")
	ErrActivityAlreadyExists = errors.New("activity already exists")
	ErrInvalidActivity       = errors.New("invalid activity")
	ErrProviderNotConfigured = errors.New("llm provider is not configured")
	ErrAllProvidersFailed    = errors.New("all llm providers failed")
	ErrUnsupportedProvider   = errors.New("unsupported llm provider")
)
