// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided identifiers that end up
// in storage keys, log records, or metric labels. Using these validators
// prevents key-prefix collisions in the verdict cache and log injection.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches valid external identifiers.
// Allows: letters, digits, dots, underscores, colons, hyphens.
// Max length: 128 characters.
//
// Slashes are deliberately excluded: the Badger cache builds keys of the
// form u/<user_id>/<fingerprint>, and a slash in a user id would let one
// user's entries shadow another's prefix.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]{0,127}$`)

// ValidateIdentifier validates an external identifier such as a user id,
// session id, or content id.
//
// Valid identifiers:
//   - 1-128 characters
//   - Letters and digits
//   - Dots, underscores, colons, hyphens after the first character
//
// Returns an error naming the field if the identifier is invalid.
//
// Example:
//
//	if err := validation.ValidateIdentifier("user_id", req.UserID); err != nil {
//	    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
//	    return
//	}
func ValidateIdentifier(field, id string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("invalid %s: must be 1-128 alphanumeric chars, dots, underscores, colons, or hyphens", field)
	}
	return nil
}

// ValidateOptionalIdentifier validates an identifier that may be absent.
// Anonymous requests legitimately omit user and session ids.
func ValidateOptionalIdentifier(field, id string) error {
	if id == "" {
		return nil
	}
	return ValidateIdentifier(field, id)
}

// SanitizeIdentifier trims whitespace and validates the result. Returns
// the trimmed identifier if valid.
func SanitizeIdentifier(field, id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if err := ValidateIdentifier(field, trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
