// Copyright (C) 2025 The CoreReports Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agents

import "strings"

// InputKind classifies a customer lookup value by its format.
type InputKind string

const (
	InputCustomerID InputKind = "CUSTOMER_ID"
	InputPhone      InputKind = "PHONE"
	InputCompanyID  InputKind = "COMPANY_ID"
	InputInvalid    InputKind = "INVALID"
)

// ClassifyCustomerInput applies the identification format rules: an
// all-digit value of exactly 11 digits is a national ID, 8-11 digits is
// a phone number, and anything else non-empty is treated as a company
// registration number.
func ClassifyCustomerInput(input string) InputKind {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return InputInvalid
	}
	if isDigits(trimmed) {
		switch n := len(trimmed); {
		case n == 11:
			return InputCustomerID
		case n >= 8 && n <= 10:
			return InputPhone
		default:
			return InputInvalid
		}
	}
	return InputCompanyID
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
