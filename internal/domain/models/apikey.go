package models

import (
	"time"
)

// Permission is one grant on an API key.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

// KeyPrefixLength is the number of leading secret characters stored in clear
// and used to locate the key record before hashing the rest.
const KeyPrefixLength = 12

// APIKey is an authentication credential. Only a salted hash of the secret is
// stored; the 12-char prefix locates the record in the key cache.
type APIKey struct {
	ID          string       `json:"id"`
	SecretHash  []byte       `json:"-"`
	Salt        []byte       `json:"-"`
	Prefix      string       `json:"prefix"`
	Name        string       `json:"name"`
	Active      bool         `json:"active"`
	Permissions []Permission `json:"permissions"`
	// AllowedIPs holds address or CIDR patterns; empty means any.
	AllowedIPs []string `json:"allowed_ips,omitempty"`
	// RateLimit is requests per minute for this key.
	RateLimit  int        `json:"rate_limit"`
	UsageCount int64      `json:"usage_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// HasPermission reports whether the key carries the permission. Admin implies
// write, and write implies read.
func (k *APIKey) HasPermission(p Permission) bool {
	for _, granted := range k.Permissions {
		if granted == p {
			return true
		}
		if granted == PermissionAdmin {
			return true
		}
		if granted == PermissionWrite && p == PermissionRead {
			return true
		}
	}
	return false
}
